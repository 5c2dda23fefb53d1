package sync

import (
	"context"
	"fmt"

	"github.com/devbydijah/todolist/internal/todo/facade"
	"github.com/devbydijah/todolist/internal/todo/remote"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"go.uber.org/zap"
)

// syncer implements the Syncer interface.
type syncer struct {
	facade *facade.Facade
	remote remote.Client
	logger *zap.Logger
}

// New creates a new Syncer.
//
// All local writes go through f so the mirror snapshot follows every change.
// If logger is nil, a no-op logger is used.
//
// Example:
//
//	client := remote.NewHTTPClient(cfg.Remote.BaseURL, nil)
//	syncer := sync.New(f, client, logger.Named("sync"))
func New(f *facade.Facade, client remote.Client, logger *zap.Logger) Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &syncer{facade: f, remote: client, logger: logger}
}

// PullAll implements Syncer.PullAll.
func (s *syncer) PullAll(ctx context.Context) (*Report, error) {
	report := newReport()
	defer report.finish()

	incoming, err := s.remote.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list remote todos: %w", err)
	}
	local, err := s.facade.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list local todos: %w", err)
	}
	byID := make(map[int64]schema.Todo, len(local))
	for _, t := range local {
		byID[t.ID] = t
	}

	for _, in := range incoming {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(s.pullOne(ctx, in, byID))
	}

	s.logger.Info("pull complete",
		zap.Int("remote", len(incoming)),
		zap.Int("pulled", len(report.Pulled())),
		zap.Int("skipped", len(report.Skipped())),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func (s *syncer) pullOne(ctx context.Context, in schema.Todo, local map[int64]schema.Todo) Result {
	res := Result{ID: in.ID, RemoteID: in.ID, Direction: DirectionPull}
	if in.ID <= 0 {
		res.Outcome = OutcomeFailed
		res.Err = &schema.ValidationError{Field: "id", Reason: "remote record has no id"}
		return res
	}

	next := in
	next.Synced = true
	if cur, ok := local[in.ID]; ok {
		if cur.IsPending() {
			res.Outcome = OutcomeSkipped
			res.Reason = "local record has unpushed changes"
			s.logger.Debug("pull skipped pending record", zap.Int64("id", in.ID))
			return res
		}
		// The remote collection may not carry descriptions.
		if next.Description == "" {
			next.Description = cur.Description
		}
		if next == cur {
			res.Outcome = OutcomeUnchanged
			return res
		}
	}

	if _, err := s.facade.Save(ctx, next); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		s.logger.Warn("pull failed for record", zap.Int64("id", in.ID), zap.Error(err))
		return res
	}
	res.Outcome = OutcomeApplied
	return res
}

// PushPending implements Syncer.PushPending.
func (s *syncer) PushPending(ctx context.Context) (*Report, error) {
	report := newReport()
	defer report.finish()

	local, err := s.facade.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list local todos: %w", err)
	}

	pending := 0
	for _, t := range local {
		if !t.IsPending() {
			continue
		}
		pending++
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(s.pushOne(ctx, t))
	}

	s.logger.Info("push complete",
		zap.Int("pending", pending),
		zap.Int("pushed", len(report.Pushed())),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func (s *syncer) pushOne(ctx context.Context, t schema.Todo) Result {
	res := Result{ID: t.ID, Direction: DirectionPush}

	created, err := s.remote.Create(ctx, t)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		s.logger.Warn("push failed for record", zap.Int64("id", t.ID), zap.Error(err))
		return res
	}
	res.RemoteID = created.ID

	_, marked, err := s.facade.MarkSynced(ctx, t)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("pushed but failed to mark synced: %w", err)
		s.logger.Warn("failed to mark record synced", zap.Int64("id", t.ID), zap.Error(err))
		return res
	}
	if !marked {
		res.Outcome = OutcomeSkipped
		res.Reason = "changed locally while pushing; stays pending"
		s.logger.Info("record changed during push", zap.Int64("id", t.ID))
		return res
	}
	if created.ID != 0 && created.ID != t.ID {
		s.logger.Debug("remote assigned a different id",
			zap.Int64("local_id", t.ID), zap.Int64("remote_id", created.ID))
	}
	res.Outcome = OutcomeApplied
	return res
}

// FullSync implements Syncer.FullSync.
func (s *syncer) FullSync(ctx context.Context) (*Report, error) {
	report := newReport()
	defer report.finish()

	pulled, err := s.PullAll(ctx)
	report.merge(pulled)
	if err != nil {
		return report, fmt.Errorf("full sync: %w", err)
	}

	pushed, err := s.PushPending(ctx)
	report.merge(pushed)
	if err != nil {
		return report, fmt.Errorf("full sync: %w", err)
	}

	s.logger.Info("full sync complete", zap.String("summary", report.Summary()))
	return report, nil
}

// Seed implements Syncer.Seed.
func (s *syncer) Seed(ctx context.Context) (*Report, error) {
	n, err := s.facade.Store().Count(ctx)
	if err != nil {
		return newReport().finish(), fmt.Errorf("failed to count local todos: %w", err)
	}
	if n > 0 {
		s.logger.Debug("seed skipped: store not empty", zap.Int("count", n))
		return newReport().finish(), nil
	}
	return s.PullAll(ctx)
}
