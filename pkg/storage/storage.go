package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrLockTimeout is returned when a lock could not be acquired in time.
var ErrLockTimeout = errors.New("lock timeout")

// Storage reads and replaces whole objects. Write must be atomic: a reader
// observes either the previous contents or the new contents, never a mix.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}

// Locker is implemented by storages that can serialize writers across
// processes.
type Locker interface {
	Lock(ctx context.Context, path string) (unlock func() error, err error)
}

// Resolver is implemented by storages backed by the local filesystem.
type Resolver interface {
	Resolve(path string) string
}
