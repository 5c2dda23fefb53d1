// Package daemon keeps a device reconciled in the background.
//
// The daemon:
//  1. Restores the mirror snapshot into the store and seeds an empty store
//     from the remote
//  2. Runs a full sync on start and then on a fixed interval
//  3. Watches the mirror snapshot for rewrites by another process and folds
//     them into the store
//  4. Shuts down when its context is cancelled
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devbydijah/todolist/internal/todo/facade"
	todosync "github.com/devbydijah/todolist/internal/todo/sync"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often a full sync runs. Zero disables the ticker;
	// syncs then only happen on start and through TriggerSync.
	SyncInterval time.Duration

	// DebounceInterval is how long the snapshot must stay quiet before a
	// change is folded in.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *zap.Logger

	// OnSync, when set, receives every finished sync pass.
	OnSync func(report *todosync.Report, err error)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     30 * time.Second,
		DebounceInterval: 200 * time.Millisecond,
		Logger:           zap.NewNop(),
	}
}

// Stats is a point-in-time view of daemon activity.
type Stats struct {
	Syncs       int
	FailedSyncs int
	Reloads     int
	LastSync    time.Time
	LastSummary string
	LastError   string
}

// Daemon orchestrates periodic sync and snapshot watching.
type Daemon struct {
	facade *facade.Facade
	syncer todosync.Syncer
	config *Config
	logger *zap.Logger

	watcher *SnapshotWatcher

	changeMu  sync.Mutex
	changedAt time.Time

	syncNow chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

// New creates a daemon over f and s.
func New(f *facade.Facade, s todosync.Syncer, config *Config) (*Daemon, error) {
	if f == nil {
		return nil, fmt.Errorf("facade cannot be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := NewSnapshotWatcher()
	if err != nil {
		return nil, err
	}

	return &Daemon{
		facade:  f,
		syncer:  s,
		config:  config,
		logger:  logger,
		watcher: watcher,
		syncNow: make(chan struct{}, 1),
	}, nil
}

// Run starts the daemon and blocks until ctx is cancelled. It returns nil on
// a clean shutdown.
//
// Remote failures never stop the daemon: the device keeps working offline and
// the next pass tries again. A failure to load the local store does.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("starting daemon", zap.String("snapshot", d.facade.Cache().Path()))

	todos, err := d.facade.LoadAll(ctx)
	if err != nil {
		_ = d.watcher.Stop()
		return fmt.Errorf("initial load failed: %w", err)
	}
	d.logger.Info("store loaded", zap.Int("count", len(todos)))

	if err := d.watcher.Start(d.facade.Cache().Path()); err != nil {
		_ = d.watcher.Stop()
		return err
	}

	if report, err := d.syncer.Seed(ctx); err != nil {
		d.logger.Warn("seed failed; continuing offline", zap.Error(err))
	} else if n := len(report.Pulled()); n > 0 {
		d.logger.Info("seeded from remote", zap.Int("count", n))
	}
	d.runSync(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.watchSnapshot(gctx) })
	g.Go(func() error { return d.processChanges(gctx) })
	g.Go(func() error { return d.syncLoop(gctx) })

	err = g.Wait()
	if stopErr := d.watcher.Stop(); stopErr != nil {
		d.logger.Warn("error closing watcher", zap.Error(stopErr))
	}
	d.logger.Info("daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// TriggerSync asks for a full sync as soon as possible. Requests made while
// one is already queued are coalesced.
func (d *Daemon) TriggerSync() {
	select {
	case d.syncNow <- struct{}{}:
	default:
	}
}

// Stats returns a copy of the activity counters.
func (d *Daemon) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

func (d *Daemon) watchSnapshot(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-d.watcher.Events():
			if !ok {
				return nil
			}
			if event.Op == OpDelete {
				continue
			}
			d.logger.Debug("snapshot event", zap.Stringer("op", event.Op), zap.String("path", event.Path))
			d.changeMu.Lock()
			d.changedAt = time.Now()
			d.changeMu.Unlock()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return nil
			}
			d.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (d *Daemon) processChanges(ctx context.Context) error {
	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.processPendingChange(ctx)
		}
	}
}

// processPendingChange folds an external snapshot rewrite into the store once
// the file has been quiet for the debounce interval.
func (d *Daemon) processPendingChange(ctx context.Context) {
	d.changeMu.Lock()
	at := d.changedAt
	if at.IsZero() || time.Since(at) < d.config.DebounceInterval {
		d.changeMu.Unlock()
		return
	}
	d.changedAt = time.Time{}
	d.changeMu.Unlock()

	cache := d.facade.Cache()
	changed, err := cache.ChangedOnDisk()
	if err != nil {
		d.logger.Warn("failed to inspect snapshot", zap.Error(err))
		return
	}
	if !changed {
		return
	}

	d.logger.Info("snapshot rewritten externally; reloading")
	cache.Invalidate()
	if _, err := d.facade.LoadAll(ctx); err != nil {
		d.logger.Warn("reload from snapshot failed", zap.Error(err))
		return
	}
	d.statsMu.Lock()
	d.stats.Reloads++
	d.statsMu.Unlock()
	d.TriggerSync()
}

func (d *Daemon) syncLoop(ctx context.Context) error {
	var tick <-chan time.Time
	if d.config.SyncInterval > 0 {
		ticker := time.NewTicker(d.config.SyncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			d.runSync(ctx)
		case <-d.syncNow:
			d.runSync(ctx)
		}
	}
}

func (d *Daemon) runSync(ctx context.Context) {
	report, err := d.syncer.FullSync(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}

	d.statsMu.Lock()
	d.stats.Syncs++
	d.stats.LastSync = time.Now()
	if report != nil {
		d.stats.LastSummary = report.Summary()
	}
	d.stats.LastError = ""
	if err != nil {
		d.stats.FailedSyncs++
		d.stats.LastError = err.Error()
	}
	d.statsMu.Unlock()

	if err != nil {
		d.logger.Warn("sync pass failed", zap.Error(err))
	} else if failed := report.Failed(); len(failed) > 0 {
		d.logger.Warn("sync finished with record failures",
			zap.Int("failed", len(failed)), zap.Error(report.Err()))
	}
	if d.config.OnSync != nil {
		d.config.OnSync(report, err)
	}
}
