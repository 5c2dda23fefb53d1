// Package facade is the single entry point for local mutations.
//
// Every write goes to the Primary Store first and is then followed by a full
// rebuild of the Mirror Cache from the store's listing, so after any completed
// call the mirror holds exactly the projection of the store. Calls that mutate
// are serialized; with a single writer the last store write for an id wins.
//
// Errors are not swallowed: a store failure stops the call before the mirror
// is touched, and a mirror failure is returned after the store write has
// already happened (the next LoadAll repairs it).
package facade

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/devbydijah/todolist/internal/todo/db"
	"github.com/devbydijah/todolist/internal/todo/mirror"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"go.uber.org/zap"
)

// Listener observes completed mutations. Callbacks run after the mirror has
// been rebuilt, while the facade lock is held, so they must not call back
// into the facade.
type Listener interface {
	OnSaved(todo schema.Todo)
	OnRemoved(id int64)
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithListener registers l for mutation notifications.
func WithListener(l Listener) Option {
	return func(f *Facade) {
		if l != nil {
			f.listeners = append(f.listeners, l)
		}
	}
}

// Facade is the Dual-Write Facade.
type Facade struct {
	store     db.Store
	cache     *mirror.Cache
	logger    *zap.Logger
	listeners []Listener

	mu sync.Mutex
}

// New wires a facade over store and cache.
func New(store db.Store, cache *mirror.Cache, opts ...Option) *Facade {
	f := &Facade{
		store:  store,
		cache:  cache,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the underlying Primary Store for read-only callers.
func (f *Facade) Store() db.Store { return f.store }

// Cache returns the underlying Mirror Cache.
func (f *Facade) Cache() *mirror.Cache { return f.cache }

// AddListener registers l after construction.
func (f *Facade) AddListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

// Save validates todo, writes it to the store and rebuilds the mirror.
// A zero ID creates a new record; any other ID replaces that record.
func (f *Facade) Save(ctx context.Context, todo schema.Todo) (schema.Todo, error) {
	if err := todo.Validate(); err != nil {
		return schema.Todo{}, err
	}

	unlock, err := f.lock()
	if err != nil {
		return schema.Todo{}, err
	}
	defer unlock()
	return f.saveLocked(ctx, todo)
}

func (f *Facade) saveLocked(ctx context.Context, todo schema.Todo) (schema.Todo, error) {
	stored, err := f.store.Put(ctx, todo)
	if err != nil {
		f.logger.Warn("store write failed", zap.Int64("id", todo.ID), zap.Error(err))
		return schema.Todo{}, err
	}
	if err := f.rebuildLocked(ctx); err != nil {
		return stored, err
	}

	f.logger.Debug("saved", zap.Int64("id", stored.ID), zap.Bool("synced", stored.Synced))
	for _, l := range f.listeners {
		l.OnSaved(stored)
	}
	return stored, nil
}

// Remove deletes the record and rebuilds the mirror. Removing an absent id
// is not an error.
func (f *Facade) Remove(ctx context.Context, id int64) error {
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := f.store.Delete(ctx, id); err != nil {
		f.logger.Warn("store delete failed", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if err := f.rebuildLocked(ctx); err != nil {
		return err
	}

	f.logger.Debug("removed", zap.Int64("id", id))
	for _, l := range f.listeners {
		l.OnRemoved(id)
	}
	return nil
}

// LoadAll folds the persisted mirror snapshot into the store, returns the
// full store listing and rebuilds the mirror from it.
func (f *Facade) LoadAll(ctx context.Context) ([]schema.Todo, error) {
	unlock, err := f.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	restored, err := f.cache.RestoreInto(ctx, f.store)
	if err != nil {
		return nil, fmt.Errorf("failed to restore mirror snapshot: %w", err)
	}
	if restored > 0 {
		f.logger.Info("restored records from mirror snapshot", zap.Int("count", restored))
	}

	todos, err := f.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.cache.RebuildFrom(todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Get reads a single record from the store.
func (f *Facade) Get(ctx context.Context, id int64) (schema.Todo, error) {
	return f.store.Get(ctx, id)
}

// List reads every record from the store ordered by id.
func (f *Facade) List(ctx context.Context) ([]schema.Todo, error) {
	return f.store.GetAll(ctx)
}

// Update merges patch into the stored record. An edited record is pending
// again until the next push.
func (f *Facade) Update(ctx context.Context, id int64, patch schema.Patch) (schema.Todo, error) {
	unlock, err := f.lock()
	if err != nil {
		return schema.Todo{}, err
	}
	defer unlock()

	current, err := f.store.Get(ctx, id)
	if err != nil {
		return schema.Todo{}, err
	}
	return f.updateLocked(ctx, current, patch)
}

// Toggle flips the completed flag of the record.
func (f *Facade) Toggle(ctx context.Context, id int64) (schema.Todo, error) {
	unlock, err := f.lock()
	if err != nil {
		return schema.Todo{}, err
	}
	defer unlock()

	current, err := f.store.Get(ctx, id)
	if err != nil {
		return schema.Todo{}, err
	}
	done := !current.Completed
	return f.updateLocked(ctx, current, schema.Patch{Completed: &done})
}

func (f *Facade) updateLocked(ctx context.Context, current schema.Todo, patch schema.Patch) (schema.Todo, error) {
	if patch.IsEmpty() {
		return current, nil
	}
	next := current.Apply(patch)
	next.Synced = false
	if err := next.Validate(); err != nil {
		return schema.Todo{}, err
	}
	return f.saveLocked(ctx, next)
}

// MarkSynced flags the record as synced if it still holds what was pushed.
// When title, description or completed changed since, or the record is gone,
// nothing is written and ok is false; the record stays pending.
func (f *Facade) MarkSynced(ctx context.Context, pushed schema.Todo) (stored schema.Todo, ok bool, err error) {
	unlock, err := f.lock()
	if err != nil {
		return schema.Todo{}, false, err
	}
	defer unlock()

	current, err := f.store.Get(ctx, pushed.ID)
	if errors.Is(err, schema.ErrNotFound) {
		return schema.Todo{}, false, nil
	}
	if err != nil {
		return schema.Todo{}, false, err
	}
	if current.Title != pushed.Title ||
		current.Description != pushed.Description ||
		current.Completed != pushed.Completed {
		return current, false, nil
	}
	if current.Synced {
		return current, true, nil
	}
	current.Synced = true
	stored, err = f.saveLocked(ctx, current)
	if err != nil {
		return schema.Todo{}, false, err
	}
	return stored, true, nil
}

// Snapshot returns the mirror's current projections without touching the store.
func (f *Facade) Snapshot() ([]schema.Projection, error) {
	return f.cache.ReadAll()
}

// lock serializes mutations within the process and, through the snapshot's
// session lock, with other processes sharing the same data directory.
func (f *Facade) lock() (func(), error) {
	f.mu.Lock()
	release, err := f.cache.LockSession()
	if err != nil {
		f.mu.Unlock()
		f.logger.Warn("failed to take session lock", zap.Error(err))
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			f.logger.Warn("failed to release session lock", zap.Error(err))
		}
		f.mu.Unlock()
	}, nil
}

// rebuildLocked must be called with the lock held.
func (f *Facade) rebuildLocked(ctx context.Context) error {
	todos, err := f.store.GetAll(ctx)
	if err != nil {
		f.logger.Warn("mirror rebuild skipped: store listing failed", zap.Error(err))
		return err
	}
	if err := f.cache.RebuildFrom(todos); err != nil {
		f.logger.Warn("mirror rebuild failed", zap.Error(err))
		return err
	}
	return nil
}
