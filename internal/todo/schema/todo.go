package schema

import (
	"sort"
	"strings"
)

// MaxTitleLength bounds titles the same way the remote collection does.
const MaxTitleLength = 500

// Todo is a single todo record as stored in the Primary Store.
type Todo struct {
	// ===== Identity =====
	ID int64 `json:"id"`

	// ===== Content =====
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`

	// ===== Reconciliation =====
	Synced bool `json:"synced,omitempty"`

	// UserID is echoed by jsonplaceholder-style remotes; kept opaque.
	UserID int64 `json:"userId,omitempty"`
}

// Projection is the reduced shape kept by the Mirror Cache.
type Projection struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Validate checks the fields a caller must supply before a write.
func (t *Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if len(t.Title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: "must be 500 characters or less"}
	}
	if t.ID < 0 {
		return &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	return nil
}

// IsPending reports whether the record still has to be pushed to the remote.
func (t Todo) IsPending() bool {
	return !t.Synced
}

// Project returns the mirror shape of t.
func (t Todo) Project() Projection {
	return Projection{ID: t.ID, Title: t.Title, Completed: t.Completed}
}

// ToTodo expands a projection back to a record. Description and Synced are
// not part of the projection and come back empty.
func (p Projection) ToTodo() Todo {
	return Todo{ID: p.ID, Title: p.Title, Completed: p.Completed}
}

// Project maps todos to their projections ordered by id.
func Project(todos []Todo) []Projection {
	out := make([]Projection, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Project())
	}
	SortProjections(out)
	return out
}

// SortTodos orders todos by ascending id in place.
func SortTodos(todos []Todo) {
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
}

// SortProjections orders projections by ascending id in place.
func SortProjections(ps []Projection) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

// Patch holds the fields of a partial edit. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Apply returns a copy of t with the patch merged in.
func (t Todo) Apply(p Patch) Todo {
	out := t
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	return out
}
