// Package engine orchestrates Discovery, Decision, Plan, and Execution into
// one incremental indexing run, and exposes run status for callers such as
// the CLI's status command. There is no package-level mutable state: every
// run owns its own Indexer and Status.
package engine

import (
	"sync"
	"time"
)

// Phase identifies which stage of the pipeline a run is currently in.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDiscovering Phase = "discovering"
	PhaseDeciding    Phase = "deciding"
	PhasePlanning    Phase = "planning"
	PhaseExecuting   Phase = "executing"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Status is a point-in-time snapshot of a run's progress.
type Status struct {
	Phase       Phase
	SourceRoot  string
	StartedAt   time.Time
	FinishedAt  time.Time
	TasksTotal  int
	Completed   int
	Failed      int
	Outcome     string
	LastError   string
}

// statusTracker guards a Status behind a mutex so callers of
// Indexer.Status can read it concurrently with an in-progress run.
type statusTracker struct {
	mu     sync.Mutex
	status Status
}

func newStatusTracker() *statusTracker {
	return &statusTracker{status: Status{Phase: PhaseIdle}}
}

func (t *statusTracker) set(fn func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}

func (t *statusTracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
