package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

const (
	defaultHashflagURL = "https://pbs.twimg.com/hashflag"

	// HashflagLayout is the selector format, one feed per UTC hour.
	HashflagLayout = "2006-01-02-15"
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:   "hashflags",
			Group: groupSocial,
			Label: "Promoted hashtag emoji",
			Param: "YYYY-MM-DD-HH",
			Usage: "Import the hashtag emoji of the feed published for a UTC hour. " +
				"Without a timestamp the current hour is used.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewHashflags(d.HTTP), nil
		},
	})
}

// Hashflags reads the hourly hashtag emoji feed.
type Hashflags struct {
	http    *fetch.Client
	baseURL string
	now     func() time.Time
}

// NewHashflags creates a hashflags source.
func NewHashflags(client *fetch.Client) *Hashflags {
	return &Hashflags{http: client, baseURL: defaultHashflagURL, now: time.Now}
}

type hashflag struct {
	Hashtag  string `json:"hashtag"`
	AssetURL string `json:"assetUrl"`
}

// feedStamp validates the selector, defaulting to the current UTC hour.
func (s *Hashflags) feedStamp(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return s.now().UTC().Format(HashflagLayout), nil
	}
	t, err := time.Parse(HashflagLayout, selector)
	if err != nil {
		return "", fmt.Errorf("%w: hashflags timestamp must look like %s, got %q", core.ErrConfig, HashflagLayout, selector)
	}
	return t.Format(HashflagLayout), nil
}

// Produce downloads config-<stamp>.json and maps each hashtag to its asset.
func (s *Hashflags) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	stamp, err := s.feedStamp(selector)
	if err != nil {
		return nil, err
	}

	var flags []hashflag
	feedURL := fmt.Sprintf("%s/config-%s.json", s.baseURL, stamp)
	if err := s.http.GetJSON(ctx, feedURL, nil, &flags); err != nil {
		return nil, fmt.Errorf("download hashflags %s: %w", stamp, err)
	}

	var set candidateSet
	for _, f := range flags {
		set.add(f.Hashtag, f.AssetURL)
	}
	return set.candidates(), nil
}
