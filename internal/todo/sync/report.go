package sync

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Direction names the side a record moved to.
type Direction string

const (
	DirectionPull Direction = "pull"
	DirectionPush Direction = "push"
)

// Outcome is what happened to one record in a pass.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result is one record attempt.
type Result struct {
	ID        int64
	RemoteID  int64
	Direction Direction
	Outcome   Outcome
	Reason    string
	Err       error
}

// Report accumulates the results of one or more passes.
type Report struct {
	Started  time.Time
	Finished time.Time
	Results  []Result
}

func newReport() *Report {
	return &Report{Started: time.Now()}
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

func (r *Report) finish() *Report {
	r.Finished = time.Now()
	return r
}

// merge appends other's results and widens the time span.
func (r *Report) merge(other *Report) {
	if other == nil {
		return
	}
	if r.Started.IsZero() || (!other.Started.IsZero() && other.Started.Before(r.Started)) {
		r.Started = other.Started
	}
	if other.Finished.After(r.Finished) {
		r.Finished = other.Finished
	}
	r.Results = append(r.Results, other.Results...)
}

func (r *Report) filter(dir Direction, outcome Outcome) []Result {
	var out []Result
	for _, res := range r.Results {
		if (dir == "" || res.Direction == dir) && res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}

// Pulled returns records written locally by a pull.
func (r *Report) Pulled() []Result { return r.filter(DirectionPull, OutcomeApplied) }

// Pushed returns records created on the remote.
func (r *Report) Pushed() []Result { return r.filter(DirectionPush, OutcomeApplied) }

// Skipped returns records deliberately left alone.
func (r *Report) Skipped() []Result { return r.filter("", OutcomeSkipped) }

// Failed returns records whose attempt failed.
func (r *Report) Failed() []Result { return r.filter("", OutcomeFailed) }

// Err joins the per-record errors, or returns nil when every record succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s todo %d: %w", res.Direction, res.ID, res.Err))
	}
	return errors.Join(errs...)
}

// Duration is the wall time covered by the report.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Summary renders a one-line description.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pulled %d, pushed %d", len(r.Pulled()), len(r.Pushed()))
	if n := len(r.filter("", OutcomeUnchanged)); n > 0 {
		fmt.Fprintf(&b, ", unchanged %d", n)
	}
	if n := len(r.Skipped()); n > 0 {
		fmt.Fprintf(&b, ", skipped %d", n)
	}
	if n := len(r.Failed()); n > 0 {
		fmt.Fprintf(&b, ", failed %d", n)
	}
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(&b, " in %s", d.Round(time.Millisecond))
	}
	return b.String()
}
