package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EmojiKey identifies a registry record. An empty Domain is the local
// instance; remote domains are never written by the importer.
type EmojiKey struct {
	Domain    string
	Shortcode string
}

// LocalKey returns the key of a local-instance emoji.
func LocalKey(shortcode string) EmojiKey {
	return EmojiKey{Shortcode: shortcode}
}

// IsLocal reports whether the key belongs to the local instance.
func (k EmojiKey) IsLocal() bool { return k.Domain == "" }

func (k EmojiKey) String() string {
	if k.IsLocal() {
		return ":" + k.Shortcode + ":"
	}
	return ":" + k.Shortcode + "@" + k.Domain + ":"
}

// Image is an encoded emoji image with the metadata produced by the
// transform pass that created it.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Animated    bool
	Frames      int
}

// EmojiRecord is a persisted registry entry. Records are never partially
// updated: a re-import deletes and recreates the row.
type EmojiRecord struct {
	ID              int64
	Key             EmojiKey
	Image           Image
	VisibleInPicker bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Candidate is one (label, locator) pair produced by a source. Locator is
// an http(s) URL, file:// URL or filesystem path, already fully resolved.
type Candidate struct {
	Label   string
	Locator string
}

// Source produces candidates for a selector (app id, channel, path, ...).
// Each variant owns its provider-specific parsing and alias resolution.
type Source interface {
	Produce(ctx context.Context, selector string) ([]Candidate, error)
}

// EmojiStore is the persistent emoji registry.
type EmojiStore interface {
	// Find returns the record for key, or (nil, nil) when absent.
	Find(ctx context.Context, key EmojiKey) (*EmojiRecord, error)

	// Upsert replaces any record with the same key by the given record as a
	// single step: it either fully commits or fully fails.
	Upsert(ctx context.Context, rec EmojiRecord) error

	// Delete removes the record for key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key EmojiKey) error
}

// Fetcher returns the bytes behind a locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Outcome is the terminal state of one candidate.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeFiltered Outcome = "skip: filtered"
	OutcomeExists   Outcome = "skip: exists"
	OutcomeFailed   Outcome = "failed"
)

// ItemResult is the reported outcome of one candidate.
type ItemResult struct {
	Label     string
	Locator   string
	Shortcode string // Empty when filtered before normalization succeeded
	Outcome   Outcome
	Kind      ErrorKind // Set when Outcome is OutcomeFailed
	Reason    string    // Technical detail for failures
	Code      string    // Support code for failures
	Replaced  bool      // A prior record existed and was (or would be) replaced
	Bytes     int
	Width     int
	Height    int
	Animated  bool
	Duration  time.Duration
}

// Report contains the aggregate result of one import run.
type Report struct {
	RunID    uuid.UUID
	Source   string
	Selector string
	DryRun   bool

	Candidates int
	Imported   int
	Filtered   int
	Exists     int
	Failed     int

	Results  []ItemResult
	Duration time.Duration
}

// FailedResults returns the results that ended in OutcomeFailed.
func (r *Report) FailedResults() []ItemResult {
	var out []ItemResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) record(res ItemResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeImported:
		r.Imported++
	case OutcomeFiltered:
		r.Filtered++
	case OutcomeExists:
		r.Exists++
	case OutcomeFailed:
		r.Failed++
	}
}
