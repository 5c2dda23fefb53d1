package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/google/go-cmp/cmp"
)

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "todos.db")
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(testDBPath(t))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := s.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSQLite_Success(t *testing.T) {
	path := testDBPath(t)
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpenSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "todos.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	s := openTestSQLite(t)
	if err := s.InitSchema(); err != nil {
		t.Fatalf("second InitSchema() failed: %v", err)
	}
}

func TestSQLite_PutAssignsIDs(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	first, err := s.Put(ctx, schema.Todo{Title: "one"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	second, err := s.Put(ctx, schema.Todo{Title: "two"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Errorf("ids not increasing: %d, %d", first.ID, second.ID)
	}
}

func TestSQLite_PutReplacesWholesale(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	saved, err := s.Put(ctx, schema.Todo{Title: "A", Description: "first"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if _, err := s.Put(ctx, schema.Todo{ID: saved.ID, Title: "A", Completed: true, Synced: true}); err != nil {
		t.Fatalf("Put() update failed: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	want := []schema.Todo{{ID: saved.ID, Title: "A", Completed: true, Synced: true}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("GetAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLite_PutExplicitIDThenInsert(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, schema.Todo{ID: 40, Title: "pulled"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	next, err := s.Put(ctx, schema.Todo{Title: "local"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if next.ID <= 40 {
		t.Errorf("new id = %d, want > 40", next.ID)
	}
}

func TestSQLite_GetNotFound(t *testing.T) {
	s := openTestSQLite(t)
	_, err := s.Get(context.Background(), 99)
	if !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("Get() = %v, want ErrNotFound", err)
	}
}

func TestSQLite_DeleteAbsentIsNoop(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, schema.Todo{Title: "keep"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := s.Delete(ctx, 12345); err != nil {
		t.Fatalf("Delete() absent = %v, want nil", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSQLite_DeletedIDNotReused(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	a, _ := s.Put(ctx, schema.Todo{Title: "a"})
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	b, err := s.Put(ctx, schema.Todo{Title: "b"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if b.ID == a.ID {
		t.Errorf("id %d reused after delete", a.ID)
	}
}

func TestSQLite_BulkPut(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	todos := []schema.Todo{
		{ID: 3, Title: "c"},
		{ID: 1, Title: "a", Completed: true},
		{ID: 2, Title: "b", Description: "bee"},
	}
	if err := s.BulkPut(ctx, todos); err != nil {
		t.Fatalf("BulkPut() failed: %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	want := []schema.Todo{
		{ID: 1, Title: "a", Completed: true},
		{ID: 2, Title: "b", Description: "bee"},
		{ID: 3, Title: "c"},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("GetAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLite_GetAllEmpty(t *testing.T) {
	s := openTestSQLite(t)
	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("GetAll() = %#v, want empty non-nil slice", all)
	}
}

func TestSQLite_ClosedReturnsStorageError(t *testing.T) {
	s, err := OpenSQLite(testDBPath(t))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}

	_, err = s.Put(context.Background(), schema.Todo{Title: "late"})
	if !errors.Is(err, schema.ErrStorage) {
		t.Fatalf("Put() after Close = %v, want storage error", err)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := testDBPath(t)
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	if err := s.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	saved, err := s.Put(ctx, schema.Todo{Title: "durable", Description: "survives"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := Open(ctx, Config{Driver: DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle"}); err == nil {
		t.Fatal("Open() with unknown driver succeeded")
	}
}
