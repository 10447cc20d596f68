// Package fs serves documents from a local directory laid out as
// <root>/<container>/<path>.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chapterqa/internal/domain"
)

type Storage struct {
	root string
}

func NewStorage(root string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Storage{root: abs}, nil
}

func (s *Storage) Fetch(ctx context.Context, container, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := filepath.Join(s.root, container, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s/%s escapes the document root", domain.ErrInvalidLocation, container, path)
	}
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrDocumentNotFound, container, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s/%s: %w", container, path, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", container, path, err)
	}
	return data, nil
}
