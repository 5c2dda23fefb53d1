package sync

import "context"

// Syncer keeps the Primary Store and the Remote Collection consistent.
//
// Every method returns a Report describing each record it touched, even when
// it also returns an error; the Report then covers the records handled before
// the pass stopped.
type Syncer interface {
	// PullAll fetches the whole remote collection and saves each record
	// locally, marked synced.
	//
	// Local records that are still pending are left alone and reported as
	// skipped. A remote record identical to its local copy is reported as
	// unchanged and not rewritten.
	//
	// Example:
	//   report, err := syncer.PullAll(ctx)
	PullAll(ctx context.Context) (*Report, error)

	// PushPending creates every pending local record on the remote, in store
	// order, and marks each one synced after its Create succeeds.
	//
	// The local id is kept; the id the remote assigns is recorded in the
	// Result.
	//
	// Example:
	//   report, err := syncer.PushPending(ctx)
	PushPending(ctx context.Context) (*Report, error)

	// FullSync runs PullAll to completion, then PushPending. A pull that fails
	// as a pass stops the sync before anything is pushed.
	FullSync(ctx context.Context) (*Report, error)

	// Seed pulls the remote collection only when the local store is empty.
	// Used on first run.
	Seed(ctx context.Context) (*Report, error)
}
