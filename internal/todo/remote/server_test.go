package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devbydijah/todolist/internal/todo/schema"
)

func TestServer_TotalCountHeader(t *testing.T) {
	srv := NewServer(nil)
	srv.Seed(schema.Todo{Title: "a"}, schema.Todo{Title: "b"}, schema.Todo{Title: "c"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/todos?_page=1&_limit=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Total-Count"); got != "3" {
		t.Errorf("X-Total-Count = %q, want 3", got)
	}
}

func TestServer_RejectsBlankTitle(t *testing.T) {
	srv := NewServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title": " "}`))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if srv.Len() != 0 {
		t.Errorf("Len() = %d, want 0", srv.Len())
	}
}

func TestServer_FaultInjection(t *testing.T) {
	srv := NewServer(nil)
	srv.SetFault(func(r *http.Request) int {
		if r.Method == http.MethodPost {
			return http.StatusServiceUnavailable
		}
		return 0
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title": "x"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	srv.SetFault(nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title": "x"}`)))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(nil)
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	c := NewHTTPClient("http://"+srv.Addr(), nil)
	if _, err := c.Create(context.Background(), schema.Todo{Title: "live"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if got := srv.Todos(); len(got) != 1 || got[0].Title != "live" {
		t.Errorf("Todos() = %+v", got)
	}
}
