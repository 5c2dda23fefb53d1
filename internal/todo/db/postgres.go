package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devbydijah/todolist/internal/todo/schema"
	_ "github.com/lib/pq"
)

const (
	postgresTableName        = "todos"
	postgresOperationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// Postgres is the server-backed Primary Store backend.
type Postgres struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc
	conn      *sql.DB
}

// OpenPostgres connects to the database named by dsn.
func OpenPostgres(dsn string) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, storageErr("open", 0, fmt.Errorf("postgres store requires a dsn"))
	}
	p := &Postgres{
		dsn:       dsn,
		tableName: postgresTableName,
		openDB:    sql.Open,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) connect() error {
	conn, err := p.openDB("postgres", p.dsn)
	if err != nil {
		return storageErr("open", 0, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return storageErr("open", 0, fmt.Errorf("failed to ping postgres: %w", err))
	}
	conn.SetMaxOpenConns(8)
	conn.SetConnMaxLifetime(5 * time.Minute)
	p.conn = conn
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	if err != nil {
		return storageErr("close", 0, err)
	}
	return nil
}

func (p *Postgres) table() string {
	return postgresQuoteIdentifier(p.tableName)
}

// InitSchemaContext creates the todos table. Idempotent.
func (p *Postgres) InitSchemaContext(ctx context.Context) error {
	if p.conn == nil {
		return storageErr("init", 0, errClosed)
	}
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		synced BOOLEAN NOT NULL DEFAULT FALSE,
		user_id BIGINT NOT NULL DEFAULT 0
	)`, p.table())
	if _, err := p.conn.ExecContext(ctx, ddl); err != nil {
		return storageErr("init", 0, fmt.Errorf("failed to initialize schema: %w", err))
	}
	return nil
}

// GetAll implements Store.
func (p *Postgres) GetAll(ctx context.Context) ([]schema.Todo, error) {
	if p.conn == nil {
		return nil, storageErr("get_all", 0, errClosed)
	}
	query := fmt.Sprintf(`SELECT id, title, description, completed, synced, user_id FROM %s ORDER BY id ASC`, p.table())
	rows, err := p.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("get_all", 0, fmt.Errorf("failed to query todos: %w", err))
	}
	defer rows.Close()

	todos := []schema.Todo{}
	for rows.Next() {
		todo, err := scanPostgresTodo(rows)
		if err != nil {
			return nil, storageErr("get_all", 0, fmt.Errorf("failed to scan todo: %w", err))
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get_all", 0, err)
	}
	return todos, nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, id int64) (schema.Todo, error) {
	if p.conn == nil {
		return schema.Todo{}, storageErr("get", id, errClosed)
	}
	query := fmt.Sprintf(`SELECT id, title, description, completed, synced, user_id FROM %s WHERE id = $1`, p.table())
	todo, err := scanPostgresTodo(p.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Todo{}, notFound(id)
	}
	if err != nil {
		return schema.Todo{}, storageErr("get", id, err)
	}
	return todo, nil
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, todo schema.Todo) (schema.Todo, error) {
	if p.conn == nil {
		return schema.Todo{}, storageErr("put", todo.ID, errClosed)
	}
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return schema.Todo{}, storageErr("put", todo.ID, err)
	}
	defer tx.Rollback()

	stored, err := p.put(ctx, tx, todo)
	if err != nil {
		return schema.Todo{}, storageErr("put", todo.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return schema.Todo{}, storageErr("put", todo.ID, err)
	}
	return stored, nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, id int64) error {
	if p.conn == nil {
		return storageErr("delete", id, errClosed)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.table())
	if _, err := p.conn.ExecContext(ctx, query, id); err != nil {
		return storageErr("delete", id, fmt.Errorf("failed to delete todo: %w", err))
	}
	return nil
}

// BulkPut implements Store.
func (p *Postgres) BulkPut(ctx context.Context, todos []schema.Todo) error {
	if p.conn == nil {
		return storageErr("bulk_put", 0, errClosed)
	}
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("bulk_put", 0, err)
	}
	defer tx.Rollback()

	for _, todo := range todos {
		if _, err := p.put(ctx, tx, todo); err != nil {
			return storageErr("bulk_put", todo.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("bulk_put", 0, err)
	}
	return nil
}

// Count implements Store.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	if p.conn == nil {
		return 0, storageErr("count", 0, errClosed)
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table())
	if err := p.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, storageErr("count", 0, err)
	}
	return count, nil
}

func (p *Postgres) put(ctx context.Context, tx *sql.Tx, todo schema.Todo) (schema.Todo, error) {
	if todo.ID == 0 {
		query := fmt.Sprintf(`
		INSERT INTO %s (title, description, completed, synced, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, p.table())
		err := tx.QueryRowContext(ctx, query,
			todo.Title, todo.Description, todo.Completed, todo.Synced, todo.UserID,
		).Scan(&todo.ID)
		if err != nil {
			return schema.Todo{}, fmt.Errorf("failed to insert todo: %w", err)
		}
		return todo, nil
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, title, description, completed, synced, user_id)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		completed = EXCLUDED.completed,
		synced = EXCLUDED.synced,
		user_id = EXCLUDED.user_id`, p.table())
	if _, err := tx.ExecContext(ctx, query,
		todo.ID, todo.Title, todo.Description, todo.Completed, todo.Synced, todo.UserID,
	); err != nil {
		return schema.Todo{}, fmt.Errorf("failed to upsert todo: %w", err)
	}

	// Explicit ids bypass the sequence. Only ever move it forward, so ids
	// freed by deletes are not handed out again.
	bump := fmt.Sprintf(`
	SELECT setval(s.seq, GREATEST($1::bigint, COALESCE(pg_sequence_last_value(s.seq), 0), 1))
	FROM (SELECT pg_get_serial_sequence('%s', 'id')::regclass AS seq) s`,
		strings.ReplaceAll(p.table(), "'", "''"))
	if _, err := tx.ExecContext(ctx, bump, todo.ID); err != nil {
		return schema.Todo{}, fmt.Errorf("failed to advance id sequence: %w", err)
	}
	return todo, nil
}

func scanPostgresTodo(row rowScanner) (schema.Todo, error) {
	var todo schema.Todo
	err := row.Scan(&todo.ID, &todo.Title, &todo.Description, &todo.Completed, &todo.Synced, &todo.UserID)
	return todo, err
}

func postgresQuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
