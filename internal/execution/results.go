package execution

import (
	"sync"
	"time"

	"github.com/jcjorel/kb-indexer/internal/types"
)

// TaskResult records the outcome of one executed (or transitively failed)
// task.
type TaskResult struct {
	TaskID   string
	TaskType types.TaskType
	Error    error
	Duration time.Duration
}

// Results is the thread-safe accumulator the scheduler writes into as tasks
// complete. One goroutine per in-flight task may call recordCompleted or
// recordFailed concurrently; the scheduler reads failure state between
// levels, and callers read the exported accessors after Run returns.
type Results struct {
	mu           sync.Mutex
	completed    map[string]TaskResult
	failed       map[string]TaskResult
	llmCallCount int
	startedAt    time.Time
	finishedAt   time.Time
}

func newResults() *Results {
	return &Results{
		completed: make(map[string]TaskResult),
		failed:    make(map[string]TaskResult),
	}
}

func (r *Results) recordCompleted(task types.AtomicTask, dur time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[task.TaskID] = TaskResult{TaskID: task.TaskID, TaskType: task.TaskType, Duration: dur}
	if task.TaskType == types.TaskAnalyzeFileLLM || task.TaskType == types.TaskCreateDirectoryKB {
		r.llmCallCount++
	}
}

func (r *Results) recordFailed(task types.AtomicTask, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[task.TaskID] = TaskResult{TaskID: task.TaskID, TaskType: task.TaskType, Error: err}
}

func (r *Results) isCompleted(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.completed[taskID]
	return ok
}

func (r *Results) isFailed(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.failed[taskID]
	return ok
}

func (r *Results) hasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed) > 0
}

// Completed returns every successfully executed task result.
func (r *Results) Completed() map[string]TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]TaskResult, len(r.completed))
	for k, v := range r.completed {
		out[k] = v
	}
	return out
}

// Failed returns every failed or transitively-blocked task result.
func (r *Results) Failed() map[string]TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]TaskResult, len(r.failed))
	for k, v := range r.failed {
		out[k] = v
	}
	return out
}

// LLMCallCount returns the number of tasks that invoked the summarizer.
func (r *Results) LLMCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.llmCallCount
}

// Duration returns the wall-clock time the run took.
func (r *Results) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishedAt.Sub(r.startedAt)
}

// Outcome classifies the run per spec.md §6: success rate >= 0.9 is
// "completed", between 0.5 and 0.9 is "completed_with_failures", below 0.5 is
// "failed". A run with no tasks at all is "completed".
func (r *Results) Outcome() string {
	r.mu.Lock()
	total := len(r.completed) + len(r.failed)
	completed := len(r.completed)
	r.mu.Unlock()

	if total == 0 {
		return "completed"
	}
	rate := float64(completed) / float64(total)
	switch {
	case rate >= 0.9:
		return "completed"
	case rate >= 0.5:
		return "completed_with_failures"
	default:
		return "failed"
	}
}
