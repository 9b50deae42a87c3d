// Package local stores objects on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ context.Context, cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
}

// contentTypeSuffix names the sidecar file holding an object's content type.
const contentTypeSuffix = ".content-type"

// Storage implements storage.Storage using the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new local filesystem storage rooted at basePath.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// resolve maps key to a path inside basePath.
func (s *Storage) resolve(key string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(filepath.Clean("/"+key)))
	if !strings.HasPrefix(full, s.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return full, nil
}

// Put writes r to a file, replacing it atomically.
func (s *Storage) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("storage: rename file: %w", err)
	}
	if contentType != "" {
		if err := os.WriteFile(fullPath+contentTypeSuffix, []byte(contentType), 0o640); err != nil {
			return fmt.Errorf("storage: write content type: %w", err)
		}
	}
	return nil
}

// Get opens the file stored under key.
func (s *Storage) Get(_ context.Context, key string) (*storage.Object, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: stat file: %w", err)
	}

	obj := &storage.Object{Key: key, Size: info.Size(), Body: f}
	if ct, err := os.ReadFile(fullPath + contentTypeSuffix); err == nil {
		obj.ContentType = string(ct)
	}
	return obj, nil
}

// Delete removes a file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	for _, p := range []string{fullPath, fullPath + contentTypeSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: delete file: %w", err)
		}
	}
	return nil
}

// Exists checks whether a file exists under key.
func (s *Storage) Exists(_ context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// Ping checks that the base directory is still present.
func (s *Storage) Ping(_ context.Context) error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("storage: stat base path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s is not a directory", s.basePath)
	}
	return nil
}

// compile-time check
var _ storage.Storage = (*Storage)(nil)
