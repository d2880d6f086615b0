package sources

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

// newFakeAPI starts a chi router on an httptest server.
func newFakeAPI(t *testing.T, routes func(r chi.Router)) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func testClient() *fetch.Client {
	return fetch.New(fetch.Options{})
}

// labels returns the candidate labels in order.
func labels(cs []core.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Label
	}
	return out
}

func locatorOf(cs []core.Candidate, label string) string {
	for _, c := range cs {
		if c.Label == label {
			return c.Locator
		}
	}
	return ""
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ===== Registration Tests =====

func TestRegisteredSources(t *testing.T) {
	want := []string{
		"steamgame", "steamprofile", "twitchchannel", "twitchsubscriptions",
		"slack", "discord", "directory", "pack", "mastodon", "hashflags",
	}
	for _, key := range want {
		def, ok := core.GetSource(key)
		if !ok {
			t.Errorf("source %q not registered", key)
			continue
		}
		if def.Info.Group == "" || def.Info.Label == "" || def.Info.Usage == "" {
			t.Errorf("source %q has incomplete info: %+v", key, def.Info)
		}
	}
	if got := core.SourceCount(); got != len(want) {
		t.Errorf("SourceCount() = %d, want %d", got, len(want))
	}
}

func TestNewSource_MissingCredentials(t *testing.T) {
	for _, key := range []string{"twitchchannel", "twitchsubscriptions", "slack", "discord"} {
		t.Run(key, func(t *testing.T) {
			_, err := core.NewSource(key, core.SourceDeps{HTTP: testClient()})
			if !errors.Is(err, core.ErrConfig) {
				t.Errorf("NewSource(%q) error = %v, want ErrConfig", key, err)
			}
		})
	}
}

func TestNewSource_NoCredentialsNeeded(t *testing.T) {
	for _, key := range []string{"steamgame", "steamprofile", "directory", "pack", "mastodon", "hashflags"} {
		t.Run(key, func(t *testing.T) {
			src, err := core.NewSource(key, core.SourceDeps{HTTP: testClient()})
			if err != nil {
				t.Fatalf("NewSource(%q) error = %v", key, err)
			}
			if src == nil {
				t.Fatalf("NewSource(%q) returned nil source", key)
			}
		})
	}
}

// ===== Candidate Set Tests =====

func TestCandidateSet(t *testing.T) {
	var set candidateSet
	set.add("blobcat", "a.png")
	set.add("blobcat", "b.png")
	set.add("", "c.png")
	set.add("nolocator", "")
	set.add("blobfox", "d.png")

	got := set.candidates()
	if !equalStrings(labels(got), []string{"blobcat", "blobfox"}) {
		t.Fatalf("labels = %v, want [blobcat blobfox]", labels(got))
	}
	if got[0].Locator != "a.png" {
		t.Errorf("first locator = %q, want a.png", got[0].Locator)
	}
}

func TestRequireSelector(t *testing.T) {
	if _, err := requireSelector("x", "thing", "   "); !errors.Is(err, core.ErrConfig) {
		t.Errorf("requireSelector(blank) error = %v, want ErrConfig", err)
	}
	got, err := requireSelector("x", "thing", " 440 ")
	if err != nil {
		t.Fatalf("requireSelector() error = %v", err)
	}
	if got != "440" {
		t.Errorf("requireSelector() = %q, want %q", got, "440")
	}
}
