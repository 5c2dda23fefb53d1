// Package schema defines the Todo record shared by every layer of todosync.
//
// # Overview
//
// A Todo lives in three places at once:
//
//	Primary Store (db)      full record, source of truth
//	Mirror Cache (mirror)   Projection {id, title, completed} snapshot
//	Remote collection       REST /todos resource
//
// The Primary Store assigns ids. Once assigned an id never changes. The
// Synced flag is reconciliation metadata only: a record whose Synced flag is
// false is pending a push to the remote collection.
//
// # Usage Examples
//
// Validating before a write:
//
//	todo := schema.Todo{Title: "  "}
//	if err := todo.Validate(); err != nil {
//	    // errors.Is(err, schema.ErrValidation) == true
//	}
//
// Merging a partial edit:
//
//	title := "Buy oat milk"
//	updated := stored.Apply(schema.Patch{Title: &title})
//
// Filtering a listing:
//
//	f := schema.Filter{Status: schema.StatusIncomplete, Search: "milk"}
//	for _, t := range todos {
//	    if f.Match(t) {
//	        fmt.Println(t.Title)
//	    }
//	}
//
// # Errors
//
// The error taxonomy lives here because every layer reports with it:
//
//   - StorageError    local medium failure (database closed, disk full)
//   - RemoteError     network fault or non-2xx response
//   - ValidationError caller supplied an invalid record
//
// Each type matches its sentinel through errors.Is (ErrStorage, ErrRemote,
// ErrValidation) and unwraps to its cause.
package schema
