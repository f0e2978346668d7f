package task

import "context"

// Repository loads and saves the whole collection. Implementations return
// cerr errors: DataLoss for a corrupt backing file, Internal for I/O
// failures, Unavailable when Lock times out.
type Repository interface {
	// Load returns an empty collection when the backing file does not exist.
	Load(ctx context.Context) (*Collection, error)
	// Save atomically replaces the backing file.
	Save(ctx context.Context, c *Collection) error
	// Lock serializes load-mutate-save cycles across processes. Backends
	// without locking return a no-op unlock.
	Lock(ctx context.Context) (unlock func() error, err error)
}
