package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

const (
	defaultSteamEmoteList   = "https://cdn.steam.tools/data/emote.json"
	defaultSteamCommunity   = "https://steamcommunity.com"
	defaultSteamEmoticonCDN = "https://cdn.steamcommunity.com/economy/emoticon/"

	// steamEmoticonClass is the inventory item_class of chat emoticons.
	steamEmoticonClass = "item_class_4"
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "steamgame",
			Group:         groupSteam,
			Label:         "Emoticons of a Steam game",
			Param:         "appid|title",
			ParamRequired: true,
			Usage:         "Import all emoticons of a Steam game, given its numeric AppID or the start of its title.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewSteamGame(d.HTTP), nil
		},
	})
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "steamprofile",
			Group:         groupSteam,
			Label:         "Emoticons in a Steam inventory",
			Param:         "steam64id",
			ParamRequired: true,
			Usage:         "Import all emoticons in the public inventory of a Steam profile, given its numeric steam64 ID.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewSteamProfile(d.HTTP), nil
		},
	})
}

// parseSteamName extracts the shortcode between the first two colons of a
// Steam market name such as ":steamhappy:" or "Emoticon :tf2smile: (Rare)".
func parseSteamName(name string) (string, bool) {
	first := strings.Index(name, ":")
	if first < 0 {
		return "", false
	}
	rest := name[first+1:]
	second := strings.Index(rest, ":")
	if second <= 0 {
		return "", false
	}
	return rest[:second], true
}

// steamAppID reads the AppID from an emote list URL of the form
// "753/<appid>-<name>".
func steamAppID(listingURL string) int {
	seg, _, _ := strings.Cut(listingURL, "-")
	if len(seg) <= 4 {
		return 0
	}
	id, err := strconv.Atoi(seg[4:])
	if err != nil {
		return 0
	}
	return id
}

// SteamGame lists the emoticons of one game from the community emote list.
type SteamGame struct {
	http    *fetch.Client
	listURL string
	cdnURL  string
}

// NewSteamGame creates a steamgame source.
func NewSteamGame(client *fetch.Client) *SteamGame {
	return &SteamGame{
		http:    client,
		listURL: defaultSteamEmoteList,
		cdnURL:  defaultSteamEmoticonCDN,
	}
}

type steamEmote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Game string `json:"game"`
}

// Produce matches emotes by AppID when the selector is numeric, otherwise
// by game title prefix. The game field carries a rarity suffix, so only a
// prefix match is meaningful.
func (s *SteamGame) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	game, err := requireSelector("steamgame", "appid or title", selector)
	if err != nil {
		return nil, err
	}
	appID, _ := strconv.Atoi(game)

	var emotes []steamEmote
	if err := s.http.GetJSON(ctx, s.listURL, nil, &emotes); err != nil {
		return nil, fmt.Errorf("download steam emote list: %w", err)
	}

	var set candidateSet
	for _, e := range emotes {
		if !(appID != 0 && steamAppID(e.URL) == appID) && !strings.HasPrefix(e.Game, game) {
			continue
		}
		if code, ok := parseSteamName(e.Name); ok {
			set.add(code, s.cdnURL+url.PathEscape(code))
		}
	}
	return set.candidates(), nil
}

// SteamProfile lists the emoticons in a public Steam inventory.
type SteamProfile struct {
	http         *fetch.Client
	communityURL string
	cdnURL       string
}

// NewSteamProfile creates a steamprofile source.
func NewSteamProfile(client *fetch.Client) *SteamProfile {
	return &SteamProfile{
		http:         client,
		communityURL: defaultSteamCommunity,
		cdnURL:       defaultSteamEmoticonCDN,
	}
}

type steamInventory struct {
	Descriptions []struct {
		Name string `json:"name"`
		Tags []struct {
			Category     string `json:"category"`
			InternalName string `json:"internal_name"`
		} `json:"tags"`
	} `json:"descriptions"`
}

// Produce downloads the Steam community inventory (app 753, context 6) of
// the profile and keeps items whose item_class marks them as emoticons.
func (s *SteamProfile) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	raw, err := requireSelector("steamprofile", "steam64 id", selector)
	if err != nil {
		return nil, err
	}
	profileID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || profileID == 0 {
		return nil, fmt.Errorf("%w: steam profile ID must be a positive integer, got %q", core.ErrConfig, raw)
	}

	inventoryURL := fmt.Sprintf("%s/inventory/%d/753/6", s.communityURL, profileID)
	var inv steamInventory
	if err := s.http.GetJSON(ctx, inventoryURL, nil, &inv); err != nil {
		return nil, fmt.Errorf("download steam inventory: %w", err)
	}
	if inv.Descriptions == nil {
		return nil, fmt.Errorf("steam inventory of %d is empty or private; make sure the profile is public", profileID)
	}

	var set candidateSet
	for _, item := range inv.Descriptions {
		isEmoticon := false
		for _, tag := range item.Tags {
			if tag.Category == "item_class" {
				isEmoticon = tag.InternalName == steamEmoticonClass
				break
			}
		}
		if !isEmoticon {
			continue
		}
		if code, ok := parseSteamName(item.Name); ok {
			set.add(code, s.cdnURL+url.PathEscape(code))
		}
	}
	return set.candidates(), nil
}
