package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"github.com/kazz187/tasktracker/internal/task"
	"github.com/kazz187/tasktracker/pkg/cerr"
	"github.com/kazz187/tasktracker/pkg/storage"
)

const target = "task file"

// FileRepository keeps the whole collection in one object of a Storage.
type FileRepository struct {
	storage storage.Storage
	path    string
	codec   Codec
	lock    bool
}

type Option func(*FileRepository)

// WithoutLock disables cross-process locking even when the storage
// supports it.
func WithoutLock() Option {
	return func(r *FileRepository) {
		r.lock = false
	}
}

// WithCodec overrides the codec chosen from the file extension.
func WithCodec(c Codec) Option {
	return func(r *FileRepository) {
		r.codec = c
	}
}

func NewFileRepository(s storage.Storage, path string, opts ...Option) (*FileRepository, error) {
	r := &FileRepository{
		storage: s,
		path:    path,
		lock:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.codec == nil {
		c, err := CodecFor(path)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
		}
		r.codec = c
	}
	return r, nil
}

func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load(ctx context.Context) (*task.Collection, error) {
	data, err := r.Raw(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return task.NewCollection(), nil
	}
	return r.Decode(data)
}

// Decode parses and validates the stored representation.
func (r *FileRepository) Decode(data []byte) (*task.Collection, error) {
	tasks, err := r.codec.Unmarshal(data)
	if err != nil {
		return nil, corrupt(r.path, err)
	}
	if err := validateSchema(tasks); err != nil {
		return nil, corrupt(r.path, err)
	}
	c := task.NewCollection(tasks...)
	if err := c.Validate(); err != nil {
		return nil, corrupt(r.path, err)
	}
	return c, nil
}

func (r *FileRepository) Save(ctx context.Context, c *task.Collection) error {
	data, err := r.Encode(c)
	if err != nil {
		return err
	}
	if err := r.storage.Write(ctx, r.path, data); err != nil {
		return cerr.WrapStorageWriteError(target, err)
	}
	return nil
}

func (r *FileRepository) Raw(ctx context.Context) ([]byte, error) {
	data, err := r.storage.Read(ctx, r.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, cerr.WrapStorageReadError(target, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (r *FileRepository) Encode(c *task.Collection) ([]byte, error) {
	data, err := r.codec.Marshal(c.Tasks)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "cannot encode task file", err)
	}
	return data, nil
}

func (r *FileRepository) Lock(ctx context.Context) (func() error, error) {
	locker, ok := r.storage.(storage.Locker)
	if !r.lock || !ok {
		return func() error { return nil }, nil
	}
	unlock, err := locker.Lock(ctx, r.path)
	if err != nil {
		return nil, cerr.WrapStorageLockError(target, err)
	}
	return unlock, nil
}

func corrupt(path string, err error) error {
	return cerr.NewError(cerr.DataLoss, fmt.Sprintf("%s %s is corrupt", target, path), err)
}
