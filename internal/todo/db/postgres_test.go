package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/devbydijah/todolist/internal/todo/schema"
)

func TestOpenPostgres_RequiresDSN(t *testing.T) {
	_, err := OpenPostgres("  ")
	if !errors.Is(err, schema.ErrStorage) {
		t.Fatalf("OpenPostgres(blank) = %v, want storage error", err)
	}
}

func TestPostgresQuoteIdentifier(t *testing.T) {
	if got := postgresQuoteIdentifier(`to"dos`); got != `"to""dos"` {
		t.Errorf("postgresQuoteIdentifier() = %s", got)
	}
}

func TestPostgres_Integration(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TODOSYNC_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("TODOSYNC_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	p, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() failed: %v", err)
	}
	p.tableName = "todos_it_" + strings.ReplaceAll(strings.ToLower(t.Name()), "/", "_")
	t.Cleanup(func() {
		_, _ = p.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+p.table())
		_ = p.Close()
	})
	if err := p.InitSchemaContext(ctx); err != nil {
		t.Fatalf("InitSchemaContext() failed: %v", err)
	}

	if err := p.BulkPut(ctx, []schema.Todo{{ID: 7, Title: "pulled", Synced: true}}); err != nil {
		t.Fatalf("BulkPut() failed: %v", err)
	}
	local, err := p.Put(ctx, schema.Todo{Title: "local"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if local.ID <= 7 {
		t.Errorf("assigned id = %d, want > 7", local.ID)
	}

	if err := p.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := p.Get(ctx, 7); !errors.Is(err, schema.ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if n, err := p.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}
}

func TestPostgres_DeletedIDsNotReused(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("TODOSYNC_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("TODOSYNC_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	p, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() failed: %v", err)
	}
	p.tableName = "todos_it_deleted_ids"
	t.Cleanup(func() {
		_, _ = p.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+p.table())
		_ = p.Close()
	})
	_, _ = p.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+p.table())
	if err := p.InitSchemaContext(ctx); err != nil {
		t.Fatalf("InitSchemaContext() failed: %v", err)
	}

	var last schema.Todo
	for _, title := range []string{"a", "b", "c"} {
		if last, err = p.Put(ctx, schema.Todo{Title: title}); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}
	if err := p.Delete(ctx, last.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	// An upsert under a lower explicit id must not rewind the sequence.
	if _, err := p.Put(ctx, schema.Todo{ID: 1, Title: "a edited"}); err != nil {
		t.Fatalf("Put(explicit) failed: %v", err)
	}
	fresh, err := p.Put(ctx, schema.Todo{Title: "d"})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if fresh.ID <= last.ID {
		t.Errorf("new id = %d, want > %d (deleted id reused)", fresh.ID, last.ID)
	}
}
