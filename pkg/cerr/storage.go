package cerr

import (
	"context"
	"errors"
	"fmt"

	"github.com/kazz187/tasktracker/pkg/storage"
)

func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, "interrupted", err)
	}
	return NewError(Internal, fmt.Sprintf("cannot read %s", target), fmt.Errorf("failed to read %s: %w", target, err))
}

func WrapStorageWriteError(target string, err error) error {
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, "interrupted", err)
	}
	return NewError(Internal, fmt.Sprintf("cannot write %s", target), fmt.Errorf("failed to write %s: %w", target, err))
}

func WrapStorageLockError(target string, err error) error {
	if errors.Is(err, storage.ErrLockTimeout) {
		return NewError(Unavailable, fmt.Sprintf("%s is locked by another process", target), err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, "interrupted", err)
	}
	return NewError(Internal, fmt.Sprintf("cannot lock %s", target), fmt.Errorf("failed to lock %s: %w", target, err))
}
