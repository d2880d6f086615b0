package core

import (
	"regexp"
	"strings"
)

// nonShortcodeRun matches a maximal run of characters that may not appear
// in a shortcode.
var nonShortcodeRun = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// hasWordChar matches any letter or digit.
var hasWordChar = regexp.MustCompile(`[A-Za-z0-9]`)

// PassesFilter reports whether the raw source label matches the run filter.
// The pattern is searched anywhere in the label unless the operator anchors it.
func PassesFilter(label string, cfg RunConfig) bool {
	if cfg.filter == nil {
		return true
	}
	return cfg.filter.MatchString(label)
}

// NormalizeShortcode maps a raw label to its registry shortcode:
//
//  1. lowercase the label when the run asks for it
//  2. replace every run of characters outside [A-Za-z0-9_] with "_"
//  3. drop one trailing "_"
//  4. prepend the run prefix verbatim
//
// A label made only of separators (punctuation, whitespace, underscores)
// normalizes to the bare prefix. An empty result means the candidate must be
// treated as filtered out.
func NormalizeShortcode(label string, cfg RunConfig) string {
	s := label
	if cfg.lowercase {
		s = strings.ToLower(s)
	}
	s = nonShortcodeRun.ReplaceAllString(s, "_")
	s = strings.TrimSuffix(s, "_")
	if !hasWordChar.MatchString(s) {
		s = ""
	}
	return cfg.prefix + s
}
