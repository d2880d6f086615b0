package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

const (
	defaultSlackAPI = "https://slack.com/api"

	slackAliasPrefix = "alias:"

	// maxAliasDepth stops alias cycles.
	maxAliasDepth = 8
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:   "slack",
			Group: groupChat,
			Label: "Custom emoji of a Slack workspace",
			Usage: "Import the custom emoji of the workspace the SLACK_TOKEN belongs to (needs the emoji:read scope). " +
				"Aliases are imported under their own name with the image they point to.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewSlack(d.HTTP, d.Credentials)
		},
	})
}

// Slack lists a workspace's custom emoji through emoji.list.
type Slack struct {
	http   *fetch.Client
	apiURL string
	token  string
}

// NewSlack creates a slack source. SLACK_TOKEN is required.
func NewSlack(client *fetch.Client, creds core.Credentials) (*Slack, error) {
	if err := requireCredential("slack", "SLACK_TOKEN", creds.SlackToken); err != nil {
		return nil, err
	}
	return &Slack{http: client, apiURL: defaultSlackAPI, token: creds.SlackToken}, nil
}

type slackEmojiList struct {
	OK    bool              `json:"ok"`
	Error string            `json:"error"`
	Emoji map[string]string `json:"emoji"`
}

// Produce ignores the selector; the token scopes the workspace.
func (s *Slack) Produce(ctx context.Context, _ string) ([]core.Candidate, error) {
	var resp slackEmojiList
	if err := s.http.GetJSON(ctx, s.apiURL+"/emoji.list", bearer(s.token), &resp); err != nil {
		return nil, fmt.Errorf("download slack emoji list: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("slack emoji.list: %s", resp.Error)
	}

	names := make([]string, 0, len(resp.Emoji))
	for name := range resp.Emoji {
		names = append(names, name)
	}
	sort.Strings(names)

	var set candidateSet
	for _, name := range names {
		if locator, ok := resolveSlackAlias(resp.Emoji, name); ok {
			set.add(name, locator)
		}
	}
	return set.candidates(), nil
}

// resolveSlackAlias follows "alias:" pointers to an image URL. Aliases of
// standard emoji, which emoji.list does not contain, do not resolve.
func resolveSlackAlias(emoji map[string]string, name string) (string, bool) {
	value := emoji[name]
	for depth := 0; depth < maxAliasDepth; depth++ {
		target, isAlias := strings.CutPrefix(value, slackAliasPrefix)
		if !isAlias {
			return value, value != ""
		}
		next, ok := emoji[target]
		if !ok {
			return "", false
		}
		value = next
	}
	return "", false
}
