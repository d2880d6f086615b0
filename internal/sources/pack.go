package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "pack",
			Group:         groupLocal,
			Label:         "Emoji pack manifest",
			Param:         "manifest",
			ParamRequired: true,
			Usage: "Import the emoji listed in a YAML pack manifest, given as a URL or a path. " +
				"Relative image paths resolve against the manifest location.",
		},
		New: func(d core.SourceDeps) (core.Source, error) {
			return NewPack(d.HTTP), nil
		},
	})
}

// PackManifest is the YAML document describing an emoji pack:
//
//	title: Blobs
//	emojis:
//	  - name: blobcat
//	    src: images/blobcat.png
//	    aliases: [blob_cat]
type PackManifest struct {
	Title  string      `yaml:"title"`
	Emojis []PackEmoji `yaml:"emojis"`
}

// PackEmoji is one manifest entry. Every alias becomes an additional
// candidate sharing the entry's image.
type PackEmoji struct {
	Name    string   `yaml:"name"`
	Src     string   `yaml:"src"`
	Aliases []string `yaml:"aliases"`
}

// Pack reads a manifest through the fetch client.
type Pack struct {
	http *fetch.Client
}

// NewPack creates a pack source.
func NewPack(client *fetch.Client) *Pack {
	return &Pack{http: client}
}

// ParsePackManifest decodes a manifest, rejecting unknown fields. An empty
// document is an empty pack.
func ParsePackManifest(data []byte) (*PackManifest, error) {
	var m PackManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse pack manifest: %w", err)
	}
	return &m, nil
}

// Produce fetches and parses the manifest. Entries without a name or src
// are skipped.
func (s *Pack) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	location, err := requireSelector("pack", "manifest", selector)
	if err != nil {
		return nil, err
	}
	data, err := s.http.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read pack manifest: %w", err)
	}
	manifest, err := ParsePackManifest(data)
	if err != nil {
		return nil, err
	}

	var set candidateSet
	for _, e := range manifest.Emojis {
		if e.Name == "" || e.Src == "" {
			continue
		}
		locator, err := resolvePackSrc(location, e.Src)
		if err != nil {
			return nil, err
		}
		set.add(e.Name, locator)
		for _, alias := range e.Aliases {
			set.add(alias, locator)
		}
	}
	return set.candidates(), nil
}

// resolvePackSrc resolves src against the manifest location. Absolute URLs
// and absolute paths are returned unchanged.
func resolvePackSrc(manifest, src string) (string, error) {
	if u, err := url.Parse(src); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return src, nil
	}

	if isURL(manifest) {
		base, err := url.Parse(manifest)
		if err != nil {
			return "", fmt.Errorf("parse manifest URL: %w", err)
		}
		if base.Scheme == "file" {
			if path.IsAbs(src) {
				return src, nil
			}
			return filepath.Join(filepath.Dir(base.Path), filepath.FromSlash(src)), nil
		}
		ref, err := url.Parse(src)
		if err != nil {
			return "", fmt.Errorf("parse pack src %q: %w", src, err)
		}
		return base.ResolveReference(ref).String(), nil
	}

	if filepath.IsAbs(src) {
		return src, nil
	}
	dir, err := filepath.Abs(filepath.Dir(manifest))
	if err != nil {
		return "", fmt.Errorf("resolve manifest directory: %w", err)
	}
	return filepath.Join(dir, filepath.FromSlash(src)), nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "file://")
}
