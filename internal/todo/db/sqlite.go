package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devbydijah/todolist/internal/todo/schema"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLite is the embedded Primary Store backend.
// The database runs with WAL so readers never block the single writer.
type SQLite struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database file at path.
//
// The caller MUST call Close() when done so the WAL is checkpointed.
//
// Example:
//
//	store, err := db.OpenSQLite(".todosync/todos.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	if err := store.InitSchema(); err != nil {
//	    return err
//	}
func OpenSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr("open", 0, fmt.Errorf("failed to create database directory: %w", err))
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, storageErr("open", 0, fmt.Errorf("failed to open database: %w", err))
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, storageErr("open", 0, fmt.Errorf("failed to ping database: %w", err))
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLite{conn: conn, path: path}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.conn.Exec(p); err != nil {
			_ = s.Close()
			return nil, storageErr("open", 0, fmt.Errorf("failed to apply %q: %w", p, err))
		}
	}

	return s, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string { return s.path }

// RawDB returns the underlying sql.DB connection.
func (s *SQLite) RawDB() *sql.DB { return s.conn }

// Close checkpoints the WAL and closes the connection. Closing twice is a no-op.
func (s *SQLite) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return storageErr("close", 0, err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the todos table. Idempotent.
func (s *SQLite) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the todos table with context support.
func (s *SQLite) InitSchemaContext(ctx context.Context) error {
	if s.conn == nil {
		return storageErr("init", 0, errClosed)
	}
	ddl := `
	CREATE TABLE IF NOT EXISTS todos (
		-- AUTOINCREMENT keeps deleted ids from being handed out again
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		synced INTEGER NOT NULL DEFAULT 0,
		user_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_todos_synced ON todos(synced);
	CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(completed);
	`
	if _, err := s.conn.ExecContext(ctx, ddl); err != nil {
		return storageErr("init", 0, fmt.Errorf("failed to initialize schema: %w", err))
	}
	return nil
}

const selectTodos = `SELECT id, title, description, completed, synced, user_id FROM todos`

// GetAll implements Store.
func (s *SQLite) GetAll(ctx context.Context) ([]schema.Todo, error) {
	if s.conn == nil {
		return nil, storageErr("get_all", 0, errClosed)
	}
	rows, err := s.conn.QueryContext(ctx, selectTodos+` ORDER BY id ASC`)
	if err != nil {
		return nil, storageErr("get_all", 0, fmt.Errorf("failed to query todos: %w", err))
	}
	defer rows.Close()

	todos, err := scanTodos(rows)
	if err != nil {
		return nil, storageErr("get_all", 0, err)
	}
	return todos, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id int64) (schema.Todo, error) {
	if s.conn == nil {
		return schema.Todo{}, storageErr("get", id, errClosed)
	}
	row := s.conn.QueryRowContext(ctx, selectTodos+` WHERE id = ?`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Todo{}, notFound(id)
	}
	if err != nil {
		return schema.Todo{}, storageErr("get", id, err)
	}
	return todo, nil
}

// Put implements Store.
func (s *SQLite) Put(ctx context.Context, todo schema.Todo) (schema.Todo, error) {
	if s.conn == nil {
		return schema.Todo{}, storageErr("put", todo.ID, errClosed)
	}
	stored, err := putSQLite(ctx, s.conn, todo)
	if err != nil {
		return schema.Todo{}, storageErr("put", todo.ID, err)
	}
	return stored, nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id int64) error {
	if s.conn == nil {
		return storageErr("delete", id, errClosed)
	}
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return storageErr("delete", id, fmt.Errorf("failed to delete todo: %w", err))
	}
	return nil
}

// BulkPut implements Store.
func (s *SQLite) BulkPut(ctx context.Context, todos []schema.Todo) error {
	if s.conn == nil {
		return storageErr("bulk_put", 0, errClosed)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("bulk_put", 0, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	for _, todo := range todos {
		if _, err := putSQLite(ctx, tx, todo); err != nil {
			return storageErr("bulk_put", todo.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("bulk_put", 0, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Count implements Store.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	if s.conn == nil {
		return 0, storageErr("count", 0, errClosed)
	}
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&count); err != nil {
		return 0, storageErr("count", 0, fmt.Errorf("failed to count todos: %w", err))
	}
	return count, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putSQLite(ctx context.Context, ex execer, todo schema.Todo) (schema.Todo, error) {
	if todo.ID == 0 {
		res, err := ex.ExecContext(ctx, `
		INSERT INTO todos (title, description, completed, synced, user_id)
		VALUES (?, ?, ?, ?, ?)`,
			todo.Title, todo.Description, boolToInt(todo.Completed), boolToInt(todo.Synced), todo.UserID,
		)
		if err != nil {
			return schema.Todo{}, fmt.Errorf("failed to insert todo: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return schema.Todo{}, fmt.Errorf("failed to read assigned id: %w", err)
		}
		todo.ID = id
		return todo, nil
	}

	_, err := ex.ExecContext(ctx, `
	INSERT INTO todos (id, title, description, completed, synced, user_id)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		completed = excluded.completed,
		synced = excluded.synced,
		user_id = excluded.user_id`,
		todo.ID, todo.Title, todo.Description, boolToInt(todo.Completed), boolToInt(todo.Synced), todo.UserID,
	)
	if err != nil {
		return schema.Todo{}, fmt.Errorf("failed to upsert todo: %w", err)
	}
	return todo, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (schema.Todo, error) {
	var todo schema.Todo
	var completed, synced int
	if err := row.Scan(&todo.ID, &todo.Title, &todo.Description, &completed, &synced, &todo.UserID); err != nil {
		return schema.Todo{}, err
	}
	todo.Completed = completed != 0
	todo.Synced = synced != 0
	return todo, nil
}

func scanTodos(rows *sql.Rows) ([]schema.Todo, error) {
	todos := []schema.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}
