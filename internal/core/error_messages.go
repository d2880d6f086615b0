package core

// Error Code Reference
//
// Each failure kind has a code so an operator can match a run summary line
// with this table when reporting problems:
//
// Fetch Errors (FETCH):
//   - FETCH001: Image or feed could not be downloaded or read
//   - FETCH002: Upstream rejected the credentials
//   - FETCH003: Upstream rate limit hit
//
// Image Errors (IMG):
//   - IMG001: Payload is not a supported image format
//   - IMG002: Image data is corrupt or too large to decode
//   - IMG003: Normalized image could not be encoded
//
// Registry Errors (STORE):
//   - STORE001: Registry read or write failed
//   - STORE002: Registry database unreachable
//
// Configuration Errors (CFG):
//   - CFG001: Run configuration is invalid
//
// Generic Errors:
//   - ERR000: Unexpected error (fallback)

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/fetch"
	"github.com/JonMunkholm/emojiimport/internal/imaging"
)

// ErrConfig marks errors that invalidate the whole run.
var ErrConfig = errors.New("invalid configuration")

// ErrorKind classifies why a candidate failed.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindFetch             ErrorKind = "fetch_failure"
	KindUnsupportedFormat ErrorKind = "unsupported_image_format"
	KindDecode            ErrorKind = "decode_failure"
	KindEncode            ErrorKind = "encode_failure"
	KindStore             ErrorKind = "store_failure"
	KindUnknown           ErrorKind = "unknown"
)

// ItemError attaches a kind to an error raised while processing a candidate.
type ItemError struct {
	Kind ErrorKind
	Err  error
}

func (e *ItemError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func itemError(kind ErrorKind, err error) error {
	return &ItemError{Kind: kind, Err: err}
}

// Classify maps an error to its kind. An explicit ItemError wins; otherwise
// the typed errors of the fetch and imaging packages decide.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		return itemErr.Kind
	}

	var (
		statusErr *fetch.StatusError
		decodeErr *imaging.DecodeError
		encodeErr *imaging.EncodeError
	)
	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, imaging.ErrTooLarge), errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &encodeErr):
		return KindEncode
	case errors.As(err, &statusErr),
		errors.Is(err, fetch.ErrTooLarge),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, context.DeadlineExceeded):
		return KindFetch
	}
	return KindUnknown
}

// UserMessage contains a user-friendly error message with optional action guidance.
type UserMessage struct {
	Message string // What went wrong (user-friendly)
	Action  string // What the user can do (optional)
	Code    string // Error code for support reference
}

var kindMessages = map[ErrorKind]UserMessage{
	KindFetch: {
		Message: "Image could not be downloaded",
		Action:  "Check the source is reachable; the item is skipped and can be retried on the next run",
		Code:    "FETCH001",
	},
	KindUnsupportedFormat: {
		Message: "Not a supported image format",
		Action:  "Use PNG, APNG, GIF, JPEG, WebP or BMP images",
		Code:    "IMG001",
	},
	KindDecode: {
		Message: "Image data is corrupt or too large",
		Code:    "IMG002",
	},
	KindEncode: {
		Message: "Normalized image could not be encoded",
		Code:    "IMG003",
	},
	KindStore: {
		Message: "Emoji registry update failed",
		Action:  "Check database connectivity and rerun; existing emoji were not modified",
		Code:    "STORE001",
	},
}

var (
	authMessage = UserMessage{
		Message: "Upstream rejected the credentials",
		Action:  "Check the API token for this source",
		Code:    "FETCH002",
	}
	rateLimitMessage = UserMessage{
		Message: "Upstream rate limit hit",
		Action:  "Wait a moment and rerun",
		Code:    "FETCH003",
	}
	configMessage = UserMessage{
		Message: "Run configuration is invalid",
		Action:  "Check the command line flags",
		Code:    "CFG001",
	}
)

// errorPatterns refines messages for untyped errors by text matching.
// Checked in order; first match wins.
var errorPatterns = []struct {
	pattern string
	message UserMessage
}{
	{"connection refused", UserMessage{
		Message: "Unable to connect to the emoji registry",
		Action:  "Check DATABASE_URL and that the database is running",
		Code:    "STORE002",
	}},
	{"no such host", UserMessage{
		Message: "Host could not be resolved",
		Action:  "Check the network connection and the source URL",
		Code:    "FETCH001",
	}},
}

// defaultMessage is returned for unrecognized errors.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Rerun with LOG_LEVEL=debug for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the default message if no kind or pattern matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if errors.Is(err, ErrConfig) {
		return configMessage
	}
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 401, 403:
			return authMessage
		case 429:
			return rateLimitMessage
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, strings.ToLower(p.pattern)) {
			return p.message
		}
	}

	if msg, ok := kindMessages[Classify(err)]; ok {
		return msg
	}
	return defaultMessage
}

// KindMessage returns the message registered for a kind.
func KindMessage(kind ErrorKind) UserMessage {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return defaultMessage
}

// FormatUserError returns a formatted error string suitable for display.
// Includes the action if available.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	msg := MapError(err)
	if msg.Action != "" {
		return fmt.Sprintf("%s. %s. (Code: %s)", msg.Message, msg.Action, msg.Code)
	}
	return fmt.Sprintf("%s. (Code: %s)", msg.Message, msg.Code)
}
