package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/imaging"
)

// RunOptions are the operator-supplied settings for one import run.
// Use DefaultRunOptions for the documented defaults.
type RunOptions struct {
	Prefix          string
	Match           string // Filter pattern, searched unanchored in the raw label
	Lowercase       bool
	MinWidth        int
	MinHeight       int
	ForceSquare     bool
	Overwrite       bool
	VisibleInPicker bool
	AnimatedToAPNG  bool
	DryRun          bool
}

// DefaultRunOptions returns options that overwrite existing emoji, keep
// them visible in the picker and import static images only.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Overwrite:       true,
		VisibleInPicker: true,
	}
}

// RunConfig is the validated, immutable configuration of one run. It is
// built once by NewRunConfig and passed by value.
type RunConfig struct {
	prefix          string
	filter          *regexp.Regexp
	lowercase       bool
	minWidth        int
	minHeight       int
	forceSquare     bool
	overwrite       bool
	visibleInPicker bool
	animatedToAPNG  bool
	dryRun          bool
}

// matchAll is the default filter.
var matchAll = regexp.MustCompile(`.*`)

// NewRunConfig validates opts. Errors wrap ErrConfig and are fatal to the
// run: no candidate is processed with an invalid configuration.
func NewRunConfig(opts RunOptions) (RunConfig, error) {
	var errs []string

	filter := matchAll
	if opts.Match != "" {
		re, err := regexp.Compile(opts.Match)
		if err != nil {
			errs = append(errs, fmt.Sprintf("filter pattern %q: %v", opts.Match, err))
		} else {
			filter = re
		}
	}
	if opts.MinWidth < 0 {
		errs = append(errs, fmt.Sprintf("minimum width (%d) must be non-negative", opts.MinWidth))
	}
	if opts.MinHeight < 0 {
		errs = append(errs, fmt.Sprintf("minimum height (%d) must be non-negative", opts.MinHeight))
	}

	if len(errs) > 0 {
		return RunConfig{}, fmt.Errorf("%w: %s", ErrConfig, strings.Join(errs, "; "))
	}

	return RunConfig{
		prefix:          opts.Prefix,
		filter:          filter,
		lowercase:       opts.Lowercase,
		minWidth:        opts.MinWidth,
		minHeight:       opts.MinHeight,
		forceSquare:     opts.ForceSquare,
		overwrite:       opts.Overwrite,
		visibleInPicker: opts.VisibleInPicker,
		animatedToAPNG:  opts.AnimatedToAPNG,
		dryRun:          opts.DryRun,
	}, nil
}

func (c RunConfig) Prefix() string { return c.prefix }
func (c RunConfig) Lowercase() bool { return c.lowercase }
func (c RunConfig) MinWidth() int { return c.minWidth }
func (c RunConfig) MinHeight() int { return c.minHeight }
func (c RunConfig) ForceSquare() bool { return c.forceSquare }
func (c RunConfig) Overwrite() bool { return c.overwrite }
func (c RunConfig) VisibleInPicker() bool { return c.visibleInPicker }
func (c RunConfig) AnimatedToAPNG() bool { return c.animatedToAPNG }
func (c RunConfig) DryRun() bool { return c.dryRun }

// FilterPattern returns the source of the filter regexp.
func (c RunConfig) FilterPattern() string {
	if c.filter == nil {
		return matchAll.String()
	}
	return c.filter.String()
}

// ImageOptions returns the transform options implied by the run.
func (c RunConfig) ImageOptions() imaging.Options {
	return imaging.Options{
		MinWidth:       c.minWidth,
		MinHeight:      c.minHeight,
		ForceSquare:    c.forceSquare,
		AnimatedToAPNG: c.animatedToAPNG,
		MaxPixels:      imaging.DefaultMaxPixels,
	}
}
