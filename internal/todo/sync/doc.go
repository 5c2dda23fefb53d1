// Package sync reconciles the local Primary Store with the Remote Collection.
//
// Overview
//
// Reconciliation runs in passes. A pull pass lists the remote collection and
// saves every record locally through the Dual-Write Facade, so the mirror
// snapshot stays in step. A push pass walks the local records that are still
// pending and creates each of them on the remote:
//
//	Remote Collection (/todos)
//	     │  PullAll: ListAll → facade.Save(synced=true)
//	     ▼
//	  Facade ──► Primary Store ──► Mirror Cache
//	     │
//	     │  PushPending: Create → facade.Save(synced=true)
//	     ▼
//	Remote Collection
//
// Usage
//
//	s := sync.New(f, remote.NewHTTPClient(baseURL, nil), logger)
//	report, err := s.FullSync(ctx)
//	if err != nil {
//	    return err // the pass itself could not run
//	}
//	for _, r := range report.Failed() {
//	    fmt.Printf("todo %d: %v\n", r.ID, r.Err)
//	}
//
// Error Handling
//
// A pass keeps going when a single record fails. Each attempt lands in the
// Report with its outcome and error. The error returned alongside the Report
// is reserved for failures of the pass itself: the remote listing failed, the
// local listing failed, or the context was cancelled. Nothing is retried.
//
// Ordering
//
// FullSync runs a complete pull before the push starts. A pending local record
// whose id collides with a pulled remote record is never overwritten by the
// pull; it is reported as skipped and pushed afterwards.
package sync
