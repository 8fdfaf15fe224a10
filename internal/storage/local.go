package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// Local stores blobs as files under a root directory. The handle is the key.
type Local struct {
	root   string
	logger *slog.Logger
}

func NewLocal(root string, logger *slog.Logger) (*Local, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: abs, logger: logger}, nil
}

func (l *Local) path(handle string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(handle, "/")))
	if clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("%w: bad blob handle %q", common.ErrInvalidInput, handle)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *Local) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	if _, err := os.Stat(p); err == nil {
		return "", fmt.Errorf("%w: blob %q already exists", common.ErrConflict, key)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	l.logger.Debug("storage.local.put", "key", key, "bytes", len(data))
	return filepath.ToSlash(key), nil
}

func (l *Local) Get(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.path(handle)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %q: %w", handle, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return b, nil
}

func (l *Local) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	l.logger.Debug("storage.local.delete", "key", handle)
	return nil
}
