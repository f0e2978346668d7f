package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	defaultFileMode  = 0o644
	defaultLockRetry = 50 * time.Millisecond
)

// LocalStorage implements Storage using the local filesystem.
type LocalStorage struct {
	basePath    string
	lockTimeout time.Duration
}

type LocalOption func(*LocalStorage)

// WithLockTimeout bounds how long Lock waits for another process.
// Zero means wait until the context is done.
func WithLockTimeout(d time.Duration) LocalOption {
	return func(s *LocalStorage) {
		s.lockTimeout = d
	}
}

// NewLocalStorage creates a new LocalStorage rooted at basePath.
func NewLocalStorage(basePath string, opts ...LocalOption) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	s := &LocalStorage{basePath: abs}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve returns the absolute filesystem path of path.
func (s *LocalStorage) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.basePath, filepath.Clean(path))
}

func (s *LocalStorage) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.Resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces path with data: temp file in the same directory, fsync,
// rename, fsync of the directory. The previous file is untouched on error.
func (s *LocalStorage) Write(_ context.Context, path string, data []byte) error {
	full := s.Resolve(path)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	perm := os.FileMode(defaultFileMode)
	if fi, err := os.Stat(full); err == nil {
		perm = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(full)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true
	return syncDir(dir)
}

// Lock takes an exclusive advisory lock on "<path>.lock".
func (s *LocalStorage) Lock(ctx context.Context, path string) (func() error, error) {
	full := s.Resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for lock: %w", err)
	}
	fl := flock.New(full + ".lock")

	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	locked, err := fl.TryLockContext(lockCtx, defaultLockRetry)
	if err != nil {
		if ctx.Err() == nil && lockCtx.Err() != nil {
			return nil, fmt.Errorf("%s after %s: %w", path, s.lockTimeout, ErrLockTimeout)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLockTimeout)
	}
	return fl.Unlock, nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory %s: %w", dir, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory %s: %w", dir, err)
	}
	return nil
}
