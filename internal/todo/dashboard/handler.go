package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/devbydijah/todolist/internal/todo/db"
	"github.com/devbydijah/todolist/internal/todo/schema"
	todosync "github.com/devbydijah/todolist/internal/todo/sync"
	"go.uber.org/zap"
)

// Handler turns facade mutations and sync passes into dashboard messages.
// It satisfies facade.Listener.
type Handler struct {
	server *Server
	stats  StatsFunc
	logger *zap.Logger
}

// NewHandler creates a handler broadcasting through server. stats may be nil,
// in which case no stats messages follow mutations.
func NewHandler(server *Server, stats StatsFunc, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{server: server, stats: stats, logger: logger}
}

// StoreStats computes counts from a full store listing.
func StoreStats(store db.Store) StatsFunc {
	return func(ctx context.Context) (StatsData, error) {
		todos, err := store.GetAll(ctx)
		if err != nil {
			return StatsData{}, err
		}
		var stats StatsData
		for _, t := range todos {
			stats.Total++
			if t.Completed {
				stats.Completed++
			}
			if t.IsPending() {
				stats.Pending++
			}
		}
		return stats, nil
	}
}

// OnSaved handles a created or changed todo.
func (h *Handler) OnSaved(todo schema.Todo) {
	h.send(MessageTypeTodoSaved, TodoData{
		ID:        todo.ID,
		Action:    "saved",
		Title:     todo.Title,
		Completed: todo.Completed,
		Pending:   todo.IsPending(),
	})
	h.BroadcastStats()
}

// OnRemoved handles a deleted todo.
func (h *Handler) OnRemoved(id int64) {
	h.send(MessageTypeTodoRemoved, TodoData{ID: id, Action: "removed"})
	h.BroadcastStats()
}

// OnSync handles a finished sync pass. Matches daemon.Config.OnSync.
func (h *Handler) OnSync(report *todosync.Report, err error) {
	data := SyncCompleteData{}
	if report != nil {
		data.Pulled = len(report.Pulled())
		data.Pushed = len(report.Pushed())
		data.Skipped = len(report.Skipped())
		data.Failed = len(report.Failed())
		data.Duration = report.Duration()
	}
	if err != nil {
		data.Error = err.Error()
	}
	h.send(MessageTypeSyncComplete, data)
	h.BroadcastStats()
}

// BroadcastStats sends current counts to every client. No-op without a
// StatsFunc.
func (h *Handler) BroadcastStats() {
	if h.stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := h.stats(ctx)
	if err != nil {
		h.logger.Warn("failed to compute stats", zap.Error(err))
		return
	}
	h.send(MessageTypeStats, stats)
}

func (h *Handler) send(typ MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Warn("failed to marshal message data", zap.String("type", string(typ)), zap.Error(err))
		return
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: time.Now(), Data: raw})
}
