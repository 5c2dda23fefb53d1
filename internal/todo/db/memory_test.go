package db

import (
	"context"
	"errors"
	"testing"

	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/google/go-cmp/cmp"
)

var _ Store = (*Memory)(nil)
var _ Store = (*SQLite)(nil)
var _ Store = (*Postgres)(nil)

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	saved, err := m.Put(ctx, schema.Todo{Title: "a"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if saved.ID != 1 {
		t.Errorf("first id = %d, want 1", saved.ID)
	}

	got, err := m.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	if err := m.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := m.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("second Delete() = %v, want nil", err)
	}
	if _, err := m.Get(ctx, saved.ID); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestMemory_ExplicitIDAdvancesCounter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.BulkPut(ctx, []schema.Todo{{ID: 10, Title: "x"}}); err != nil {
		t.Fatalf("BulkPut() failed: %v", err)
	}
	next, err := m.Put(ctx, schema.Todo{Title: "y"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if next.ID != 11 {
		t.Errorf("next id = %d, want 11", next.ID)
	}
}

func TestMemory_GetAllOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.BulkPut(ctx, []schema.Todo{{ID: 5, Title: "e"}, {ID: 2, Title: "b"}, {ID: 9, Title: "i"}})

	all, err := m.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	var ids []int64
	for _, todo := range all {
		ids = append(ids, todo.ID)
	}
	if diff := cmp.Diff([]int64{2, 5, 9}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_FailNext(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	cause := errors.New("quota exceeded")

	m.FailNext(cause)
	_, err := m.Put(ctx, schema.Todo{Title: "a"})
	if !errors.Is(err, schema.ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("Put() = %v, want storage error wrapping cause", err)
	}

	if _, err := m.Put(ctx, schema.Todo{Title: "a"}); err != nil {
		t.Fatalf("Put() after injected failure = %v, want nil", err)
	}
	if n, _ := m.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	_ = m.Close()
	if _, err := m.GetAll(context.Background()); !errors.Is(err, schema.ErrStorage) {
		t.Fatalf("GetAll() after Close = %v, want storage error", err)
	}
}
