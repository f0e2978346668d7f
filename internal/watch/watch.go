// Package watch notifies about changes to a single file.
package watch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is the delay after a filesystem event before the file is
// re-read, so that a write followed by a rename is reported once.
const DebounceInterval = 100 * time.Millisecond

// File watches the parent directory of path, not the file itself: an
// atomic replace creates a new inode and would drop a watch on the file.
// onChange runs on the calling goroutine each time the contents change.
// File blocks until ctx is done and then returns nil.
func File(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	slog.DebugContext(ctx, "watching task file", "path", path)

	lastHash, err := hashFile(path)
	if err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceInterval, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case <-changed:
			hash, err := hashFile(path)
			if err != nil {
				slog.WarnContext(ctx, "failed to read watched file", "path", path, "error", err)
				continue
			}
			if bytes.Equal(hash, lastHash) {
				continue
			}
			lastHash = hash
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "watch error", "error", err)
		}
	}
}

// hashFile returns the SHA-256 of the file, or nil if it does not exist.
func hashFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}
