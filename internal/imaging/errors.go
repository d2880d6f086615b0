package imaging

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when the payload is not an image format
// the pipeline can decode (HTML error pages, SVG, video, truncated headers).
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrTooLarge is returned when the decoded canvas exceeds Options.MaxPixels.
var ErrTooLarge = errors.New("image dimensions exceed limit")

// DecodeError reports a payload that was identified as a known format but
// could not be decoded.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure while producing the final representation.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
