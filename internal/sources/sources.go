// Package sources implements the provider variants that feed the importer.
//
// Each file registers its variants with core.RegisterSource from init.
// Import this package for its side effects to make all sources available:
//
//	import _ "github.com/JonMunkholm/emojiimport/internal/sources"
//
// A source resolves everything provider specific (label formats, aliases,
// CDN URL templates, auth) and hands the importer plain (label, locator)
// pairs.
package sources

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/core"
)

// Provider groups shown in the CLI help.
const (
	groupSteam      = "Steam"
	groupTwitch     = "Twitch"
	groupChat       = "Chat"
	groupLocal      = "Local"
	groupFederation = "Federation"
	groupSocial     = "Social"
)

// requireSelector trims selector and fails with core.ErrConfig when empty.
func requireSelector(key, param, selector string) (string, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return "", fmt.Errorf("%w: %s requires a %s", core.ErrConfig, key, param)
	}
	return s, nil
}

// requireCredential fails with core.ErrConfig when value is empty.
func requireCredential(key, envName, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s requires %s", core.ErrConfig, key, envName)
	}
	return nil
}

// bearer returns an Authorization header for token.
func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// candidateSet collects candidates, keeping the first locator seen for
// each label.
type candidateSet struct {
	seen map[string]bool
	out  []core.Candidate
}

func (s *candidateSet) add(label, locator string) {
	if label == "" || locator == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[label] {
		return
	}
	s.seen[label] = true
	s.out = append(s.out, core.Candidate{Label: label, Locator: locator})
}

func (s *candidateSet) candidates() []core.Candidate {
	return s.out
}
