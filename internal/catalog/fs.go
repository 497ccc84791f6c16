package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrNotFound             = errors.New("not found")
	ErrPermissionDenied     = errors.New("permission denied")
)

// DirLister lists the files in a single directory. Subdirectories are not
// searched.
type DirLister struct {
	Dir string
}

// List returns the absolute paths of regular files in the directory whose
// extension is one of exts, sorted by file name.
func (l DirLister) List(ctx context.Context, exts []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// paths are absolute so that they stay valid whatever the reader
	// resolves relative paths against
	dir, err := filepath.Abs(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, l.Dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, l.Dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				paths = append(paths, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	// os.ReadDir already sorts by name but the order is part of the contract
	sort.Strings(paths)
	return paths, nil
}

// FileReader reads files that lie inside Root. Paths are resolved against
// Root when relative. An empty Root disables the check.
type FileReader struct {
	Root string
}

func (r FileReader) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, mapError(path, err)
	}
	return data, nil
}

func (r FileReader) resolve(path string) (string, error) {
	if r.Root == "" {
		return filepath.Clean(path), nil
	}
	root, err := filepath.Abs(r.Root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, r.Root, err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrPermissionDenied, path, r.Root)
	}
	return full, nil
}

func mapError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	}
	return err
}
