package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devbydijah/todolist/internal/todo/schema"
	"go.uber.org/zap"
)

// FaultFunc lets tests force a status code for a request. Returning 0 lets
// the request through.
type FaultFunc func(r *http.Request) int

// Server is an in-memory Remote Collection serving the same /todos routes as
// jsonplaceholder. It backs tests and `todosync remote serve`.
type Server struct {
	logger *zap.Logger

	mu     sync.Mutex
	todos  map[int64]wireTodo
	nextID int64
	fault  FaultFunc

	httpServer *http.Server
	listener   net.Listener
}

// NewServer returns an empty collection. A nil logger is replaced by a no-op.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger, todos: make(map[int64]wireTodo), nextID: 1}
}

// Seed loads records as if they had been created on the server. A zero ID
// takes the next free id.
func (s *Server) Seed(todos ...schema.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range todos {
		w := toWire(t)
		if w.ID == 0 {
			w.ID = s.nextID
		}
		if w.ID >= s.nextID {
			s.nextID = w.ID + 1
		}
		s.todos[w.ID] = w
	}
}

// SetFault installs fn, or clears it when fn is nil.
func (s *Server) SetFault(fn FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// Todos returns the stored records ordered by id.
func (s *Server) Todos() []schema.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, t.todo())
	}
	schema.SortTodos(out)
	return out
}

// Len returns the number of stored records.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.todos)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos", s.handleList)
	mux.HandleFunc("POST /todos", s.handleCreate)
	mux.HandleFunc("GET /todos/{id}", s.handleGet)
	mux.HandleFunc("PUT /todos/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /todos/{id}", s.handleDelete)
	return s.withFaults(mux)
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("remote server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("remote collection listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fault := s.fault
		s.mu.Unlock()
		if fault != nil {
			if code := fault(r); code != 0 {
				http.Error(w, http.StatusText(code), code)
				return
			}
		}
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", r.Header.Get("X-Correlation-Id")),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := make([]wireTodo, 0, len(s.todos))
	for _, t := range s.todos {
		all = append(all, t)
	}
	s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	q := r.URL.Query()
	if userID := q.Get("userId"); userID != "" {
		uid, _ := strconv.ParseInt(userID, 10, 64)
		filtered := all[:0]
		for _, t := range all {
			if t.UserID == uid {
				filtered = append(filtered, t)
			}
		}
		all = filtered
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(len(all)))
	page := atoiDefault(q.Get("_page"), 0)
	limit := atoiDefault(q.Get("_limit"), 0)
	if page > 0 && limit <= 0 {
		limit = 10
	}
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		start := (page - 1) * limit
		if start > len(all) {
			start = len(all)
		}
		end := start + limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	t, found := s.todos[id]
	s.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in wireTodo
	if !decodeBody(w, r, &in) {
		return
	}
	s.mu.Lock()
	in.ID = s.nextID
	s.nextID++
	s.todos[in.ID] = in
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in wireTodo
	if !decodeBody(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.todos[id]; !found {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	in.ID = id
	s.todos[id] = in
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.todos, id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, struct{}{})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out *wireTodo) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	if strings.TrimSpace(out.Title) == "" {
		http.Error(w, "title is required", http.StatusUnprocessableEntity)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
