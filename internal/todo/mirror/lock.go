package mirror

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devbydijah/todolist/internal/todo/schema"
)

// LockPath returns the file used to serialize sessions sharing this snapshot.
func (c *Cache) LockPath() string { return c.path + ".lock" }

// LockSession takes an exclusive lock shared by every process using the same
// snapshot path, blocking until it is free. Holders may write the store and
// rewrite the snapshot without another session interleaving. The returned
// func releases the lock.
func (c *Cache) LockSession() (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return nil, &schema.StorageError{Op: "mirror_lock", Err: fmt.Errorf("failed to create snapshot directory: %w", err)}
	}
	f, err := os.OpenFile(c.LockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, &schema.StorageError{Op: "mirror_lock", Err: err}
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, &schema.StorageError{Op: "mirror_lock", Err: fmt.Errorf("failed to lock %s: %w", f.Name(), err)}
	}
	return func() error {
		unlockErr := unlockFile(f)
		closeErr := f.Close()
		if unlockErr != nil {
			return &schema.StorageError{Op: "mirror_unlock", Err: unlockErr}
		}
		if closeErr != nil {
			return &schema.StorageError{Op: "mirror_unlock", Err: closeErr}
		}
		return nil
	}, nil
}
