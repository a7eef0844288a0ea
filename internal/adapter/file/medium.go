// Package file stores progress collections as JSON files on an afero filesystem.
// With afero.NewMemMapFs it doubles as the in-memory medium.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

const probeName = ".__storage_probe__"

type Medium struct {
	fs  afero.Fs
	dir string
}

// NewMedium stores one file per key under dir
func NewMedium(fs afero.Fs, dir string) (*Medium, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	return &Medium{fs: fs, dir: filepath.Clean(dir)}, nil
}

// NewMemoryMedium returns a medium that lives only for the process
func NewMemoryMedium() *Medium {
	return &Medium{fs: afero.NewMemMapFs(), dir: "/progress"}
}

func (m *Medium) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}
	probe := filepath.Join(m.dir, probeName)
	if err := afero.WriteFile(m.fs, probe, []byte(probeName), 0o644); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	if err := m.fs.Remove(probe); err != nil {
		return fmt.Errorf("remove probe: %w", err)
	}
	return nil
}

func (m *Medium) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(m.fs, m.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (m *Medium) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}
	target := m.path(key)
	tmp := target + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := m.fs.Rename(tmp, target); err != nil {
		_ = m.fs.Remove(tmp)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

func (m *Medium) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.fs.Remove(m.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (m *Medium) path(key string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(m.dir, name+".json")
}
