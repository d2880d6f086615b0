// Package core provides the business logic for emoji import operations.
//
// This package is the heart of the importer, containing all domain logic
// independent of any provider, storage backend or frontend. It can be
// driven by the CLI, by tests, or by any other caller that supplies a
// [Source], an [EmojiStore] and a [Fetcher].
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Run configuration: [NewRunConfig] validates operator options once per
//     run into an immutable [RunConfig].
//   - Shortcodes: [PassesFilter] and [NormalizeShortcode] turn provider
//     labels into registry shortcodes.
//   - Importer: [Importer.Run] drives each candidate through filter,
//     normalize, lookup, fetch, transform and upsert.
//   - Source registry: providers register at init time with [RegisterSource].
//
// # Source Registry
//
// Sources are registered at init time using [RegisterSource]. Each
// [SourceDefinition] describes the CLI surface and builds the source from
// its dependencies:
//
//	core.RegisterSource(core.SourceDefinition{
//	    Info: core.SourceInfo{Key: "mastodon", Group: "Federation", Param: "instance"},
//	    New: func(d core.SourceDeps) (core.Source, error) {
//	        return NewMastodon(d.HTTP), nil
//	    },
//	})
//
// # Candidate Lifecycle
//
// Every candidate ends in exactly one outcome and one log line:
//
//  1. Labels not matching the filter are skipped as filtered
//  2. Existing records are skipped unless overwrite is enabled
//  3. The image is fetched within the per-item timeout
//  4. The image is validated, resized and re-encoded
//  5. The record is upserted, unless the run is a dry run
//
// A failing candidate never stops the run. Source errors and invalid
// configuration do.
//
// # Error Handling
//
// Failures are classified with [Classify] and mapped to user-friendly
// messages using [MapError]. Each category has a code for support
// reference:
//
//   - FETCH001-FETCH003: Download errors (unreachable, auth, rate limit)
//   - IMG001-IMG003: Image errors (format, decode, encode)
//   - STORE001-STORE002: Registry errors
//   - CFG001: Configuration errors
//
// # Thread Safety
//
// The source registry is safe for concurrent use. An [Importer] processes
// candidates sequentially and must not be shared between concurrent runs.
package core
