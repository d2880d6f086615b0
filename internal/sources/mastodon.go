package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "mastodon",
			Group:         groupFederation,
			Label:         "Custom emoji of a Mastodon instance",
			Param:         "instance",
			ParamRequired: true,
			Usage:         "Mirror the public custom emoji of a Mastodon instance, given its host name or URL.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewMastodon(d.HTTP), nil
		},
	})
}

// Mastodon lists an instance's custom emoji through the public API.
type Mastodon struct {
	http *fetch.Client

	// scheme applied to bare host selectors.
	scheme string
}

// NewMastodon creates a mastodon source.
func NewMastodon(client *fetch.Client) *Mastodon {
	return &Mastodon{http: client, scheme: "https"}
}

type mastodonEmoji struct {
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	StaticURL string `json:"static_url"`
}

// instanceURL normalizes a host or URL selector to the instance origin.
func (s *Mastodon) instanceURL(selector string) (string, error) {
	raw := selector
	if !strings.Contains(raw, "://") {
		raw = s.scheme + "://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid mastodon instance %q", core.ErrConfig, selector)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Produce downloads /api/v1/custom_emojis. The original (possibly
// animated) image is preferred over the static rendition.
func (s *Mastodon) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	instance, err := requireSelector("mastodon", "instance", selector)
	if err != nil {
		return nil, err
	}
	origin, err := s.instanceURL(instance)
	if err != nil {
		return nil, err
	}

	var emojis []mastodonEmoji
	if err := s.http.GetJSON(ctx, origin+"/api/v1/custom_emojis", nil, &emojis); err != nil {
		return nil, fmt.Errorf("download custom emoji of %s: %w", origin, err)
	}

	var set candidateSet
	for _, e := range emojis {
		locator := e.URL
		if locator == "" {
			locator = e.StaticURL
		}
		set.add(e.Shortcode, locator)
	}
	return set.candidates(), nil
}
