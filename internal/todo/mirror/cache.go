// Package mirror keeps the Mirror Cache: a reduced-shape JSON snapshot of the
// Primary Store used for fast synchronous reads.
//
// The snapshot is always rebuilt whole from a full store listing and never
// merged, so its content is a pure function of the last listing it was given.
// It holds only id, title and completed; restoring from it is lossy.
package mirror

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/devbydijah/todolist/internal/todo/db"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

const snapshotSchemaURL = "todosync://mirror/snapshot.schema.json"

var (
	compileOnce    sync.Once
	snapshotSchema *jsonschema.Schema
	compileErr     error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(snapshotSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("failed to parse snapshot schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(snapshotSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("failed to register snapshot schema: %w", err)
			return
		}
		snapshotSchema, compileErr = c.Compile(snapshotSchemaURL)
	})
	return snapshotSchema, compileErr
}

// Cache is the Mirror Cache. Safe for concurrent use.
type Cache struct {
	path string

	mu      sync.RWMutex
	loaded  bool
	items   []schema.Projection
	written [sha256.Size]byte
}

// New returns a cache persisted at path. Nothing is read until first use.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the snapshot file location.
func (c *Cache) Path() string { return c.path }

// RebuildFrom replaces the snapshot with the projection of todos.
func (c *Cache) RebuildFrom(todos []schema.Todo) error {
	items := schema.Project(todos)
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return &schema.StorageError{Op: "mirror_rebuild", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeAtomic(c.path, data); err != nil {
		return &schema.StorageError{Op: "mirror_rebuild", Err: err}
	}
	c.items = items
	c.loaded = true
	c.written = sha256.Sum256(data)
	return nil
}

// ChangedOnDisk reports whether the snapshot file differs from what this
// cache last wrote, i.e. another process rewrote it.
func (c *Cache) ChangedOnDisk() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &schema.StorageError{Op: "mirror_read", Err: err}
	}
	return sha256.Sum256(data) != c.written, nil
}

// ReadAll returns the current snapshot ordered by id. A missing file reads as
// an empty snapshot.
func (c *Cache) ReadAll() ([]schema.Projection, error) {
	c.mu.RLock()
	if c.loaded {
		out := append([]schema.Projection(nil), c.items...)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		items, err := c.load()
		if err != nil {
			return nil, err
		}
		c.items = items
		c.loaded = true
	}
	return append([]schema.Projection(nil), c.items...), nil
}

// Invalidate drops the in-memory copy so the next read goes to disk.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.items = nil
}

// RestoreInto applies the persisted snapshot to store and returns how many
// records were written.
//
// Records missing from the store are inserted from their projection, so their
// description is lost and they come back pending. Records the store already
// has keep description and synced state and take title and completed from
// the snapshot.
func (c *Cache) RestoreInto(ctx context.Context, store db.Store) (int, error) {
	c.mu.Lock()
	items, err := c.load()
	if err == nil {
		c.items = items
		c.loaded = true
	}
	c.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	existing, err := store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]schema.Todo, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}

	batch := make([]schema.Todo, 0, len(items))
	for _, p := range items {
		cur, ok := byID[p.ID]
		if !ok {
			batch = append(batch, p.ToTodo())
			continue
		}
		if cur.Title == p.Title && cur.Completed == p.Completed {
			continue
		}
		cur.Title = p.Title
		cur.Completed = p.Completed
		batch = append(batch, cur)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := store.BulkPut(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// load reads and validates the snapshot file. Callers hold mu.
func (c *Cache) load() ([]schema.Projection, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return []schema.Projection{}, nil
	}
	if err != nil {
		return nil, &schema.StorageError{Op: "mirror_read", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []schema.Projection{}, nil
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, &schema.StorageError{Op: "mirror_read", Err: err}
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &schema.StorageError{Op: "mirror_read", Err: fmt.Errorf("corrupt snapshot %s: %w", c.path, err)}
	}
	if err := sch.Validate(doc); err != nil {
		return nil, &schema.StorageError{Op: "mirror_read", Err: fmt.Errorf("invalid snapshot %s: %w", c.path, err)}
	}

	var items []schema.Projection
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &schema.StorageError{Op: "mirror_read", Err: fmt.Errorf("corrupt snapshot %s: %w", c.path, err)}
	}
	if items == nil {
		items = []schema.Projection{}
	}
	schema.SortProjections(items)
	return items, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
