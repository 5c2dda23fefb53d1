// Package db provides the Primary Store: durable keyed storage of Todo records.
//
// The Primary Store is the source of truth on the device. Every other copy of a
// record (the mirror snapshot, the remote collection) is derived from or
// reconciled against it.
//
// Backends:
//   - SQLite (default): embedded database file, WAL mode, via ncruces/go-sqlite3
//   - Postgres: shared server database via lib/pq
//   - Memory: process-local map, for tests and ephemeral runs
//
// All backends share the same contract:
//   - Put with ID 0 assigns the next integer id; any other id is an upsert that
//     replaces the record wholesale
//   - Delete of an absent id is not an error
//   - failures of the medium surface as *schema.StorageError and are never
//     retried here
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devbydijah/todolist/internal/todo/schema"
)

// Store is the Primary Store contract.
type Store interface {
	// GetAll returns every record ordered by ascending id.
	GetAll(ctx context.Context) ([]schema.Todo, error)

	// Get returns the record with the given id, or an error matching
	// schema.ErrNotFound.
	Get(ctx context.Context, id int64) (schema.Todo, error)

	// Put inserts the record when its ID is 0, otherwise replaces the record
	// with the same id (inserting it if absent). Returns the stored record.
	Put(ctx context.Context, todo schema.Todo) (schema.Todo, error)

	// Delete removes the record. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id int64) error

	// BulkPut applies Put to every record in a single transaction.
	BulkPut(ctx context.Context, todos []schema.Todo) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying medium.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config selects and locates a backend.
type Config struct {
	// Driver is one of DriverSQLite, DriverPostgres, DriverMemory.
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the Postgres connection string.
	DSN string
}

// Open creates the configured backend and initializes its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := s.InitSchemaContext(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.InitSchemaContext(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// errClosed is the cause reported when a closed store is used.
var errClosed = errors.New("store is not open")

func storageErr(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	var se *schema.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &schema.StorageError{Op: op, ID: id, Err: err}
}

func notFound(id int64) error {
	return fmt.Errorf("todo %d: %w", id, schema.ErrNotFound)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
