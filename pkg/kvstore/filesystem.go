package kvstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FilesystemStore persists each key as a file under a root directory. Writes
// go through a temp-file rename so readers never observe a partial value.
type FilesystemStore struct {
	root    string
	watcher *fsnotify.Watcher
}

// NewFilesystemStore creates a store rooted at dir, creating it if needed
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("filesystem store root is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FilesystemStore{root: dir}, nil
}

func (s *FilesystemStore) path(key string) string {
	// Keys contain ':' separators; escape so every key maps to a flat,
	// reversible filename.
	return filepath.Join(s.root, url.PathEscape(key))
}

// Get returns the value for key
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set writes the value for key atomically
func (s *FilesystemStore) Set(ctx context.Context, key string, value []byte) error {
	target := s.path(key)
	tmp, err := os.CreateTemp(s.root, ".write-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

// Delete removes the key
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Watch invokes onChange whenever another writer modifies the store root.
// Used by the session layer to re-run a session restore when a sibling
// process updates the persisted identity.
func (s *FilesystemStore) Watch(onChange func()) error {
	if s.watcher != nil {
		return fmt.Errorf("store is already being watched")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.root, err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Watch errors are non-fatal; the store itself still works.
			}
		}
	}()
	return nil
}

// Close stops any watcher
func (s *FilesystemStore) Close() error {
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}
