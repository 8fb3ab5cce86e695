package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
)

// IOGraphFileLoader reads compile inputs from the local filesystem.
// Relative paths resolve against Root, or the working directory when Root
// is empty. Contents are cached for the lifetime of the loader.
type IOGraphFileLoader struct {
	Root  string
	cache loader.Cache
}

func NewIOGraphFileLoader() *IOGraphFileLoader {
	return &IOGraphFileLoader{}
}

func (l *IOGraphFileLoader) path(p string) string {
	if l.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.Root, p)
}

func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(file, func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := os.ReadFile(l.path(file.FilePath))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.FilePath, err)
		}
		return b, nil
	})
}
