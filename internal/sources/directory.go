package sources

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/emojiimport/internal/core"
)

// imageExtensions lists the file extensions picked up by a directory scan.
var imageExtensions = map[string]bool{
	".gif":  true,
	".png":  true,
	".apng": true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
}

func init() {
	core.RegisterSource(core.SourceDefinition{
		Info: core.SourceInfo{
			Key:           "directory",
			Group:         groupLocal,
			Label:         "Image files in a local directory",
			Param:         "path",
			ParamRequired: true,
			Usage: "Import every .png, .apng, .gif, .jpg, .jpeg, .webp and .bmp file below a directory. " +
				"The file name without its extension becomes the label.",
		},
		New: func(core.SourceDeps) (core.Source, error) {
			return NewDirectory(), nil
		},
	})
}

// Directory scans a local directory tree for image files.
type Directory struct{}

// NewDirectory creates a directory source.
func NewDirectory() *Directory {
	return &Directory{}
}

// Produce walks the directory in lexical order. Hidden files and
// directories are skipped. When two files share a base name the first one
// walked wins.
func (s *Directory) Produce(ctx context.Context, selector string) ([]core.Candidate, error) {
	root, err := requireSelector("directory", "path", selector)
	if err != nil {
		return nil, err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", selector, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", core.ErrConfig, root)
	}

	var set candidateSet
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !imageExtensions[ext] {
			return nil
		}
		set.add(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())), path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return set.candidates(), nil
}
