package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/emojiimport/internal/imaging"
	"github.com/JonMunkholm/emojiimport/internal/logging"
)

// DefaultItemTimeout bounds the image fetch of one candidate.
const DefaultItemTimeout = 30 * time.Second

// Importer drives candidates through filter, normalization, conflict
// check, fetch, transform and store. It processes one candidate at a time
// and never lets a per-candidate failure abort the run.
type Importer struct {
	store       EmojiStore
	fetcher     Fetcher
	cfg         RunConfig
	logger      *slog.Logger
	observer    func(ItemResult)
	itemTimeout time.Duration
	now         func() time.Time
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithObserver registers fn to be called with every terminal ItemResult.
func WithObserver(fn func(ItemResult)) ImporterOption {
	return func(im *Importer) { im.observer = fn }
}

// WithLogger sets the logger used for per-candidate outcome lines.
func WithLogger(logger *slog.Logger) ImporterOption {
	return func(im *Importer) { im.logger = logger }
}

// WithItemTimeout bounds the fetch of a single image. Zero disables the bound.
func WithItemTimeout(d time.Duration) ImporterOption {
	return func(im *Importer) { im.itemTimeout = d }
}

// NewImporter creates an importer bound to a registry, a fetcher and a
// validated run configuration.
func NewImporter(store EmojiStore, fetcher Fetcher, cfg RunConfig, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:       store,
		fetcher:     fetcher,
		cfg:         cfg,
		logger:      slog.Default(),
		itemTimeout: DefaultItemTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Run produces candidates from src and processes them in order.
//
// Errors from the source are fatal and returned before any candidate is
// processed. When ctx is cancelled between candidates the partial report is
// returned together with the context error.
func (im *Importer) Run(ctx context.Context, sourceKey string, src Source, selector string) (*Report, error) {
	start := im.now()
	report := &Report{
		RunID:    uuid.New(),
		Source:   sourceKey,
		Selector: selector,
		DryRun:   im.cfg.dryRun,
	}

	ctx = logging.WithRunID(ctx, report.RunID.String())
	logger := logging.Enrich(ctx, im.logger)
	logger.Info("import started",
		"source", sourceKey,
		"selector", selector,
		"dry_run", im.cfg.dryRun,
		"prefix", im.cfg.prefix,
		"filter", im.FilterPattern(),
	)

	candidates, err := src.Produce(ctx, selector)
	if err != nil {
		report.Duration = im.now().Sub(start)
		return report, fmt.Errorf("produce candidates from %s: %w", sourceKey, err)
	}
	report.Candidates = len(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			report.Duration = im.now().Sub(start)
			logger.Warn("import interrupted",
				"processed", len(report.Results),
				"remaining", len(candidates)-len(report.Results),
			)
			return report, err
		}
		report.record(im.Process(ctx, c))
	}

	report.Duration = im.now().Sub(start)
	logger.Info("import finished",
		"candidates", report.Candidates,
		"imported", report.Imported,
		"filtered", report.Filtered,
		"exists", report.Exists,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// FilterPattern returns the filter in effect.
func (im *Importer) FilterPattern() string {
	return im.cfg.FilterPattern()
}

// Process runs one candidate to a terminal state, logs exactly one outcome
// line and notifies the observer.
func (im *Importer) Process(ctx context.Context, c Candidate) ItemResult {
	start := im.now()
	res := im.process(ctx, c)
	res.Duration = im.now().Sub(start)

	im.logResult(ctx, res)
	if im.observer != nil {
		im.observer(res)
	}
	return res
}

func (im *Importer) process(ctx context.Context, c Candidate) ItemResult {
	res := ItemResult{Label: c.Label, Locator: c.Locator}

	if !PassesFilter(c.Label, im.cfg) {
		res.Outcome = OutcomeFiltered
		res.Reason = "label does not match filter"
		return res
	}

	res.Shortcode = NormalizeShortcode(c.Label, im.cfg)
	if res.Shortcode == "" {
		res.Outcome = OutcomeFiltered
		res.Reason = "empty shortcode"
		return res
	}
	key := LocalKey(res.Shortcode)

	existing, err := im.store.Find(ctx, key)
	if err != nil {
		return failed(res, itemError(KindStore, fmt.Errorf("find %s: %w", key, err)))
	}
	if existing != nil {
		if !im.cfg.overwrite {
			res.Outcome = OutcomeExists
			return res
		}
		res.Replaced = true
	}

	data, err := im.fetch(ctx, c.Locator)
	if err != nil {
		return failed(res, itemError(KindFetch, err))
	}

	out, err := imaging.Transform(data, im.cfg.ImageOptions())
	if err != nil {
		return failed(res, err)
	}
	res.Bytes = len(out.Data)
	res.Width = out.Width
	res.Height = out.Height
	res.Animated = out.Animated

	if im.cfg.dryRun {
		res.Outcome = OutcomeImported
		return res
	}

	now := im.now()
	rec := EmojiRecord{
		Key: key,
		Image: Image{
			Data:        out.Data,
			ContentType: out.ContentType,
			Width:       out.Width,
			Height:      out.Height,
			Animated:    out.Animated,
			Frames:      out.Frames,
		},
		VisibleInPicker: im.cfg.visibleInPicker,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := im.store.Upsert(ctx, rec); err != nil {
		return failed(res, itemError(KindStore, fmt.Errorf("upsert %s: %w", key, err)))
	}

	res.Outcome = OutcomeImported
	return res
}

func (im *Importer) fetch(ctx context.Context, locator string) ([]byte, error) {
	if im.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.itemTimeout)
		defer cancel()
	}
	return im.fetcher.Fetch(ctx, locator)
}

func failed(res ItemResult, err error) ItemResult {
	res.Outcome = OutcomeFailed
	res.Kind = Classify(err)
	if res.Kind == KindUnknown {
		// Transform only returns typed errors; anything else came from decoding.
		var itemErr *ItemError
		if !errors.As(err, &itemErr) {
			res.Kind = KindDecode
		}
	}
	res.Reason = err.Error()
	res.Code = KindMessage(res.Kind).Code
	return res
}

func (im *Importer) logResult(ctx context.Context, res ItemResult) {
	logger := logging.Enrich(ctx, im.logger).With(
		"label", res.Label,
		"shortcode", res.Shortcode,
		"outcome", string(res.Outcome),
	)

	switch res.Outcome {
	case OutcomeImported:
		logger.Info("emoji imported",
			"replaced", res.Replaced,
			"bytes", res.Bytes,
			"width", res.Width,
			"height", res.Height,
			"animated", res.Animated,
			"dry_run", im.cfg.dryRun,
			"duration_ms", res.Duration.Milliseconds(),
		)
	case OutcomeFiltered:
		logger.Info("emoji skipped", "reason", res.Reason)
	case OutcomeExists:
		logger.Info("emoji skipped", "reason", "already exists")
	case OutcomeFailed:
		logger.Warn("emoji failed",
			"kind", string(res.Kind),
			"code", res.Code,
			"locator", res.Locator,
			"error", res.Reason,
		)
	}
}
