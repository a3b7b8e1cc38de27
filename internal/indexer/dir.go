package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DirSource reads files from a local directory tree.
type DirSource struct {
	root string
	exts []string
}

var _ Source = (*DirSource)(nil)

// NewDirSource walks root. When exts is empty every regular file is listed;
// otherwise only files with one of the given extensions (".md", ".pdf").
func NewDirSource(root string, exts []string) *DirSource {
	norm := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		norm = append(norm, e)
	}
	return &DirSource{root: root, exts: norm}
}

// Revision implements Source.
func (d *DirSource) Revision(context.Context) (string, error) {
	return "local:" + d.root, nil
}

// List implements Source. Paths are slash-separated and relative to root.
func (d *DirSource) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if p != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !d.accepts(entry.Name()) {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.root, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// Fetch implements Source. The file id is the relative path.
func (d *DirSource) Fetch(_ context.Context, path string) (*SourceDoc, error) {
	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, err
	}
	return &SourceDoc{FileID: path, Filename: filepath.Base(path), Data: data}, nil
}

func (d *DirSource) accepts(name string) bool {
	if len(d.exts) == 0 {
		return true
	}
	return slices.Contains(d.exts, strings.ToLower(filepath.Ext(name)))
}
