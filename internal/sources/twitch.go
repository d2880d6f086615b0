package sources

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

const (
	defaultHelixURL = "https://api.twitch.tv/helix"

	// defaultEmoteTemplate is used when a Helix response omits its template.
	defaultEmoteTemplate = "https://static-cdn.jtvnw.net/emoticons/v2/{{id}}/{{format}}/{{theme_mode}}/{{scale}}"

	// maxHelixPages bounds cursor pagination.
	maxHelixPages = 50
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:   "twitchchannel",
			Group: groupTwitch,
			Label: "Emotes of a Twitch channel",
			Param: "channel",
			Usage: "Import the subscriber emotes of a Twitch channel given its login name, " +
				"or the global emotes when no channel is given. Requires TWITCH_CLIENT_ID and TWITCH_ACCESS_TOKEN.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewTwitchChannel(d.HTTP, d.Credentials)
		},
	})
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "twitchsubscriptions",
			Group:         groupTwitch,
			Label:         "Emotes available to a Twitch user",
			Param:         "username",
			ParamRequired: true,
			Usage: "Import every emote the given Twitch user can use. The access token must be a " +
				"user token of that account with the user:read:emotes scope.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewTwitchSubscriptions(d.HTTP, d.Credentials)
		},
	})
}

// helixClient performs authenticated Helix API requests.
type helixClient struct {
	http     *fetch.Client
	baseURL  string
	clientID string
	token    string
}

func newHelixClient(key string, client *fetch.Client, creds core.Credentials) (*helixClient, error) {
	if err := requireCredential(key, "TWITCH_CLIENT_ID", creds.TwitchClientID); err != nil {
		return nil, err
	}
	if err := requireCredential(key, "TWITCH_ACCESS_TOKEN", creds.TwitchAccessToken); err != nil {
		return nil, err
	}
	return &helixClient{
		http:     client,
		baseURL:  defaultHelixURL,
		clientID: creds.TwitchClientID,
		token:    creds.TwitchAccessToken,
	}, nil
}

func (c *helixClient) get(ctx context.Context, path string, query url.Values, v any) error {
	h := bearer(c.token)
	h.Set("Client-Id", c.clientID)
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.http.GetJSON(ctx, u, h, v)
}

// userID resolves a login name to a Twitch user ID.
func (c *helixClient) userID(ctx context.Context, login string) (string, error) {
	var resp struct {
		Data []struct {
			ID    string `json:"id"`
			Login string `json:"login"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/users", url.Values{"login": {strings.ToLower(login)}}, &resp); err != nil {
		return "", fmt.Errorf("look up twitch user %q: %w", login, err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("twitch user %q not found", login)
	}
	return resp.Data[0].ID, nil
}

type helixEmote struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Format []string `json:"format"`
}

type helixEmotes struct {
	Data       []helixEmote `json:"data"`
	Template   string       `json:"template"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// emoteURL fills the CDN template, preferring the animated variant so the
// importer can decide how to handle animation.
func emoteURL(template string, e helixEmote) string {
	if template == "" {
		template = defaultEmoteTemplate
	}
	format := "static"
	if slices.Contains(e.Format, "animated") {
		format = "animated"
	}
	return strings.NewReplacer(
		"{{id}}", e.ID,
		"{{format}}", format,
		"{{theme_mode}}", "dark",
		"{{scale}}", "3.0",
	).Replace(template)
}

func addEmotes(set *candidateSet, resp helixEmotes) {
	for _, e := range resp.Data {
		set.add(e.Name, emoteURL(resp.Template, e))
	}
}

// TwitchChannel lists global emotes or the emotes of one channel.
type TwitchChannel struct {
	helix *helixClient
}

// NewTwitchChannel creates a twitchchannel source. Both Twitch credentials
// are required.
func NewTwitchChannel(client *fetch.Client, creds core.Credentials) (*TwitchChannel, error) {
	helix, err := newHelixClient("twitchchannel", client, creds)
	if err != nil {
		return nil, err
	}
	return &TwitchChannel{helix: helix}, nil
}

// Produce lists the channel emotes for a login, or the global emotes when
// the selector is empty.
func (s *TwitchChannel) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	var resp helixEmotes
	channel := strings.TrimSpace(selector)

	if channel == "" {
		if err := s.helix.get(ctx, "/chat/emotes/global", nil, &resp); err != nil {
			return nil, fmt.Errorf("download global twitch emotes: %w", err)
		}
	} else {
		id, err := s.helix.userID(ctx, channel)
		if err != nil {
			return nil, err
		}
		if err := s.helix.get(ctx, "/chat/emotes", url.Values{"broadcaster_id": {id}}, &resp); err != nil {
			return nil, fmt.Errorf("download emotes of %s: %w", channel, err)
		}
	}

	var set candidateSet
	addEmotes(&set, resp)
	return set.candidates(), nil
}

// TwitchSubscriptions lists every emote available to a user.
type TwitchSubscriptions struct {
	helix *helixClient
}

// NewTwitchSubscriptions creates a twitchsubscriptions source.
func NewTwitchSubscriptions(client *fetch.Client, creds core.Credentials) (*TwitchSubscriptions, error) {
	helix, err := newHelixClient("twitchsubscriptions", client, creds)
	if err != nil {
		return nil, err
	}
	return &TwitchSubscriptions{helix: helix}, nil
}

// Produce follows the pagination cursor of the user emotes endpoint.
func (s *TwitchSubscriptions) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	login, err := requireSelector("twitchsubscriptions", "username", selector)
	if err != nil {
		return nil, err
	}
	id, err := s.helix.userID(ctx, login)
	if err != nil {
		return nil, err
	}

	var set candidateSet
	cursor := ""
	for page := 0; page < maxHelixPages; page++ {
		q := url.Values{"user_id": {id}}
		if cursor != "" {
			q.Set("after", cursor)
		}
		var resp helixEmotes
		if err := s.helix.get(ctx, "/chat/emotes/user", q, &resp); err != nil {
			return nil, fmt.Errorf("download emotes of %s: %w", login, err)
		}
		addEmotes(&set, resp)

		cursor = resp.Pagination.Cursor
		if cursor == "" {
			break
		}
	}
	return set.candidates(), nil
}
