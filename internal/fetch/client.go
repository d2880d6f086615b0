// Package fetch retrieves feed documents and image payloads for the importer.
//
// Every request is bounded by a timeout and a response size limit. Failures
// are returned to the caller, never retried: an unreachable image is skipped
// and reported so one bad host cannot stall the batch.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when Options.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes is the response size limit (10MB) when Options.MaxBytes is unset.
const DefaultMaxBytes = 10 * 1024 * 1024

// DefaultUserAgent identifies the importer to upstream services.
const DefaultUserAgent = "emojiimport/1.0"

// ErrTooLarge is returned when a response or file exceeds the size limit.
var ErrTooLarge = errors.New("response exceeds size limit")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// Transport overrides the HTTP transport (tests, proxies).
	Transport http.RoundTripper
}

// Client performs bounded GET requests and local file reads.
type Client struct {
	http      *http.Client
	maxBytes  int64
	userAgent string
}

// New creates a Client, applying defaults for zero-valued options.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
	}
}

// UserAgent returns the User-Agent sent with requests.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get issues a GET request and returns the body. header may be nil.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("GET %s: %w (%d bytes)", rawURL, ErrTooLarge, resp.ContentLength)
	}

	return c.readLimited(resp.Body, rawURL)
}

// GetJSON issues a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	body, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// Fetch returns the bytes behind a locator: an http(s) URL, a file:// URL,
// or a plain filesystem path.
func (c *Client) Fetch(ctx context.Context, locator string) ([]byte, error) {
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return c.Get(ctx, locator, nil)
	case strings.HasPrefix(locator, "file://"):
		u, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("parse locator: %w", err)
		}
		return c.readFile(ctx, u.Path)
	default:
		return c.readFile(ctx, locator)
	}
}

func (c *Client) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.readLimited(f, path)
}

func (c *Client) readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("read %s: %w", name, ErrTooLarge)
	}
	return data, nil
}
