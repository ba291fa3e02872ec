// Package execution runs a validated ExecutionPlan to completion: a bounded
// worker pool processes one dependency level at a time, using
// golang.org/x/sync/errgroup for per-level concurrency (spec.md §4.5, §5).
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcjorel/kb-indexer/internal/types"
)

// TaskExecutor runs a single AtomicTask to completion. Implementations must
// be safe for concurrent use: the engine invokes Execute from multiple
// goroutines within one dependency level.
type TaskExecutor interface {
	Execute(ctx context.Context, task types.AtomicTask) error
}

// Config controls the engine's scheduling behavior.
type Config struct {
	// MaxConcurrency bounds the worker pool size. Default 8.
	MaxConcurrency int
	// ContinueOnFileErrors, when true (the default), lets independent tasks
	// keep running after a sibling task fails; when false, the engine stops
	// dispatching further levels once any task has failed.
	ContinueOnFileErrors bool
}

// DefaultConfig returns the spec's default scheduling parameters.
func DefaultConfig() Config {
	return Config{MaxConcurrency: 8, ContinueOnFileErrors: true}
}

// Engine executes a validated plan's tasks level by level.
type Engine struct {
	plan     *types.ExecutionPlan
	executor TaskExecutor
	cfg      Config
	logger   *slog.Logger
}

// NewEngine creates an execution Engine. A nil logger falls back to
// slog.Default().
func NewEngine(plan *types.ExecutionPlan, executor TaskExecutor, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{plan: plan, executor: executor, cfg: cfg, logger: logger.With("component", "execution")}
}

// Run executes every task in the plan, one dependency level at a time.
// Completion of level k strictly happens-before dispatch of level k+1
// (spec.md §5 "Ordering guarantees"). On external cancellation, tasks
// already running are allowed to finish; no new level is dispatched.
func (e *Engine) Run(ctx context.Context) *Results {
	res := newResults()
	res.startedAt = time.Now()

	for _, level := range e.plan.Levels() {
		if ctx.Err() != nil {
			e.logger.Warn("execution cancelled, no further levels dispatched")
			break
		}

		ready := e.readyTasks(level, res)
		e.runLevel(ctx, ready, res)

		if !e.cfg.ContinueOnFileErrors && res.hasFailures() {
			e.logger.Warn("aborting remaining levels: continue_on_file_errors is false and a task failed")
			break
		}
	}

	res.finishedAt = time.Now()
	return res
}

// readyTasks resolves one level's task ids to tasks, immediately failing any
// task whose dependency already failed ("dependency failed", spec.md §4.5
// point 4) without ever invoking the executor for it.
func (e *Engine) readyTasks(level []string, res *Results) []types.AtomicTask {
	ready := make([]types.AtomicTask, 0, len(level))
	for _, id := range level {
		task, ok := e.plan.Task(id)
		if !ok {
			continue
		}
		if blocker, blocked := blockedBy(task, res); blocked {
			res.recordFailed(task, fmt.Errorf("dependency failed: %s", blocker))
			continue
		}
		ready = append(ready, task)
	}
	sortByPriorityThenCreatedAt(ready)
	return ready
}

func blockedBy(task types.AtomicTask, res *Results) (string, bool) {
	for dep := range task.Dependencies {
		if res.isFailed(dep) {
			return dep, true
		}
	}
	return "", false
}

// sortByPriorityThenCreatedAt orders a ready batch by descending priority,
// then ascending created_at, deterministic for identical inputs (spec.md
// §4.5 "Ordering within a ready batch").
func sortByPriorityThenCreatedAt(tasks []types.AtomicTask) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].CreatedAt < tasks[j].CreatedAt
	})
}

// runLevel dispatches one dependency level's ready tasks under a bounded
// concurrency group. A task failure is captured and recorded but never
// returned to the group as an error, so sibling tasks in the same level
// keep running rather than having their context cancelled.
func (e *Engine) runLevel(ctx context.Context, ready []types.AtomicTask, res *Results) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for _, task := range ready {
		task := task
		g.Go(func() error {
			start := time.Now()
			err := e.executor.Execute(gctx, task)
			dur := time.Since(start)
			if err != nil {
				e.logger.Error("task failed", "task_id", task.TaskID, "task_type", task.TaskType, "error", err)
				res.recordFailed(task, err)
				return nil
			}
			res.recordCompleted(task, dur)
			return nil
		})
	}
	_ = g.Wait()
}
