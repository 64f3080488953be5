package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errOutsideRoot = errors.New("document path escapes the document directory")

// DirSource reads documents from a local directory. Names resolve relative
// to the root, and symlinks pointing outside it are refused.
type DirSource struct {
	root string
}

func NewDirSource(root string) (*DirSource, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("document directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve document directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &DirSource{root: abs}, nil
}

func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fetch %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("fetch %s: %w", name, ErrNotFound)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return data, nil
}

func (s *DirSource) resolve(name string) (string, error) {
	rel := filepath.Clean("/" + strings.TrimSpace(name))
	if rel == "/" {
		return "", fmt.Errorf("document name is required")
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(s.root, rel))
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, s.root) {
		return "", errOutsideRoot
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
