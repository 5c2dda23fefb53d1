package db

import (
	"context"
	"sync"

	"github.com/devbydijah/todolist/internal/todo/schema"
)

// Memory is an in-process Store. It backs tests and --ephemeral runs.
type Memory struct {
	mu       sync.Mutex
	todos    map[int64]schema.Todo
	nextID   int64
	closed   bool
	failNext error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{todos: make(map[int64]schema.Todo), nextID: 1}
}

// FailNext makes the next operation fail with err wrapped in a StorageError.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// check must be called with mu held.
func (m *Memory) check(op string, id int64) error {
	if m.closed {
		return storageErr(op, id, errClosed)
	}
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return storageErr(op, id, err)
	}
	return nil
}

// GetAll implements Store.
func (m *Memory) GetAll(ctx context.Context) ([]schema.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("get_all", 0); err != nil {
		return nil, err
	}
	out := make([]schema.Todo, 0, len(m.todos))
	for _, t := range m.todos {
		out = append(out, t)
	}
	schema.SortTodos(out)
	return out, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, id int64) (schema.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("get", id); err != nil {
		return schema.Todo{}, err
	}
	t, ok := m.todos[id]
	if !ok {
		return schema.Todo{}, notFound(id)
	}
	return t, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, todo schema.Todo) (schema.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("put", todo.ID); err != nil {
		return schema.Todo{}, err
	}
	return m.put(todo), nil
}

func (m *Memory) put(todo schema.Todo) schema.Todo {
	if todo.ID == 0 {
		todo.ID = m.nextID
	}
	if todo.ID >= m.nextID {
		m.nextID = todo.ID + 1
	}
	m.todos[todo.ID] = todo
	return todo
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete", id); err != nil {
		return err
	}
	delete(m.todos, id)
	return nil
}

// BulkPut implements Store. Either every record lands or none does.
func (m *Memory) BulkPut(ctx context.Context, todos []schema.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("bulk_put", 0); err != nil {
		return err
	}
	for _, t := range todos {
		m.put(t)
	}
	return nil
}

// Count implements Store.
func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("count", 0); err != nil {
		return 0, err
	}
	return len(m.todos), nil
}

// Close implements Store. Every later call fails with a StorageError.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
