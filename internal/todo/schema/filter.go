package schema

import (
	"fmt"
	"strings"
)

// Status selects todos by completion.
type Status string

const (
	StatusAll        Status = "all"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

// ParseStatus accepts the filter names used by the list view. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusCompleted, "done":
		return StatusCompleted, nil
	case StatusIncomplete, "pending", "open":
		return StatusIncomplete, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown filter %q", s)}
	}
}

// Filter narrows a listing by completion and a case-insensitive title search.
type Filter struct {
	Status Status
	Search string
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Todo) bool {
	return f.match(t.Title, t.Completed)
}

// MatchProjection is Match for the mirror shape.
func (f Filter) MatchProjection(p Projection) bool {
	return f.match(p.Title, p.Completed)
}

func (f Filter) match(title string, completed bool) bool {
	switch f.Status {
	case StatusCompleted:
		if !completed {
			return false
		}
	case StatusIncomplete:
		if completed {
			return false
		}
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), term)
}

// Apply returns the todos that pass the filter, preserving order.
func (f Filter) Apply(todos []Todo) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
