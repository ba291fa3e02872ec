package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcjorel/kb-indexer/internal/cache"
	"github.com/jcjorel/kb-indexer/internal/config"
	"github.com/jcjorel/kb-indexer/internal/decision"
	"github.com/jcjorel/kb-indexer/internal/discovery"
	"github.com/jcjorel/kb-indexer/internal/execution"
	"github.com/jcjorel/kb-indexer/internal/handler"
	"github.com/jcjorel/kb-indexer/internal/plan"
	"github.com/jcjorel/kb-indexer/internal/summarizer"
	"github.com/jcjorel/kb-indexer/internal/types"
)

const gitClonesDirName = "git-clones"

// Result aggregates the outcome of every source tree an Indexer run
// touched: the project tree plus, when enabled, every vendored repo tree
// under <output_root>/git-clones.
type Result struct {
	CompletedCount int
	FailedCount    int
	LLMCallCount   int
	Duration       time.Duration
	Outcome        string
	FailedTasks    map[string]string
}

func newResult() *Result {
	return &Result{FailedTasks: make(map[string]string)}
}

func (r *Result) absorb(res *execution.Results) {
	r.CompletedCount += len(res.Completed())
	for id, tr := range res.Failed() {
		if tr.Error != nil {
			r.FailedTasks[id] = tr.Error.Error()
		} else {
			r.FailedTasks[id] = "dependency failed"
		}
	}
	r.FailedCount += len(res.Failed())
	r.LLMCallCount += res.LLMCallCount()
	r.Duration += res.Duration()
}

func (r *Result) finalize() {
	total := r.CompletedCount + r.FailedCount
	if total == 0 {
		r.Outcome = "completed"
		return
	}
	rate := float64(r.CompletedCount) / float64(total)
	switch {
	case rate >= 0.9:
		r.Outcome = "completed"
	case rate >= 0.5:
		r.Outcome = "completed_with_failures"
	default:
		r.Outcome = "failed"
	}
}

// Indexer orchestrates Discovery, Decision, Plan, and Execution for every
// source tree a configuration names. It holds no global mutable state: every
// Indexer owns its own status tracker (spec.md §9 Design Notes forbid a
// process-wide singleton indexer).
type Indexer struct {
	cfg        *config.Config
	summarizer summarizer.Summarizer
	logger     *slog.Logger
	status     *statusTracker
}

// NewIndexer builds an Indexer. A nil logger falls back to slog.Default().
func NewIndexer(cfg *config.Config, summ summarizer.Summarizer, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		cfg:        cfg,
		summarizer: summ,
		logger:     logger.With("component", "engine"),
		status:     newStatusTracker(),
	}
}

// Status returns a snapshot of the current (or most recent) run's progress.
func (idx *Indexer) Status() Status {
	return idx.status.snapshot()
}

type treeJob struct {
	root string
	h    handler.Handler
}

// buildJobs resolves the registry and the list of source trees to index,
// honoring the enable_project_indexing / enable_vendored_repo_indexing
// toggles (spec.md §6). The project handler is always registered last, as
// the fallback handler (spec.md §4.1).
func (idx *Indexer) buildJobs() (*handler.Registry, []treeJob, error) {
	var handlers []handler.Handler
	var jobs []treeJob

	if idx.cfg.Handlers.EnableVendoredRepoIndexing {
		vendored := &handler.VendoredRepoHandler{OutputRoot: idx.cfg.OutputRoot}
		handlers = append(handlers, vendored)

		repoRoots, err := idx.vendoredRepoRoots()
		if err != nil {
			return nil, nil, fmt.Errorf("listing vendored repos: %w", err)
		}
		for _, root := range repoRoots {
			jobs = append(jobs, treeJob{root: root, h: vendored})
		}
	}

	if idx.cfg.Handlers.EnableProjectIndexing {
		project := &handler.ProjectHandler{OutputRoot: idx.cfg.OutputRoot}
		handlers = append(handlers, project)
		// Project tree goes first: it is the tree whose decision pass also
		// carries the one-time deletion scan across every handler.
		jobs = append([]treeJob{{root: idx.cfg.SourceRoot, h: project}}, jobs...)
	}

	return handler.NewRegistry(idx.logger, handlers...), jobs, nil
}

func (idx *Indexer) vendoredRepoRoots() ([]string, error) {
	root := filepath.Join(idx.cfg.OutputRoot, gitClonesDirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var roots []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasSuffix(e.Name(), ".kb") {
			roots = append(roots, filepath.Join(root, e.Name()))
		}
	}
	return roots, nil
}

// Run executes one full incremental indexing pass: every configured source
// tree is discovered, decided, planned, and executed in turn. A failure
// discovering or planning one tree aborts the whole run; task-level
// failures within execution do not (spec.md §4.5).
func (idx *Indexer) Run(ctx context.Context, mode decision.Mode) (*Result, error) {
	idx.status.set(func(s *Status) {
		*s = Status{Phase: PhaseDiscovering, SourceRoot: idx.cfg.SourceRoot, StartedAt: time.Now()}
	})

	reg, jobs, err := idx.buildJobs()
	if err != nil {
		idx.fail(err)
		return nil, err
	}

	walker := discovery.NewWalker(idx.logger)
	decEngine := decision.NewEngine(idx.logger).WithProjectRoot(idx.cfg.SourceRoot)
	gen := plan.NewGenerator()
	execCache := cache.New(idx.cfg.SourceRoot)
	executor := execution.NewRealExecutor(execCache, idx.summarizer, idx.logger)
	execCfg := execution.Config{
		MaxConcurrency:       idx.cfg.Execution.MaxConcurrentOperations,
		ContinueOnFileErrors: idx.cfg.Execution.ContinueOnFileErrors,
	}

	combined := newResult()
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		tree, err := walker.Walk(job.root, job.h)
		if err != nil {
			idx.fail(err)
			return nil, fmt.Errorf("discovering %s: %w", job.root, err)
		}

		idx.status.set(func(s *Status) { s.Phase = PhaseDeciding })
		var treeReg *handler.Registry
		if i == 0 {
			// The deletion scan covers every handler's output area; running
			// it once against the first tree is sufficient.
			treeReg = reg
		}
		report := decEngine.Build(tree, job.h, treeReg, job.root, mode)

		idx.status.set(func(s *Status) { s.Phase = PhasePlanning })
		execPlan, err := gen.Generate(tree, report, job.root)
		if err != nil {
			idx.fail(err)
			return nil, fmt.Errorf("planning %s: %w", job.root, err)
		}

		idx.status.set(func(s *Status) {
			s.Phase = PhaseExecuting
			s.TasksTotal += execPlan.Len()
		})

		eng := execution.NewEngine(execPlan, executor, execCfg, idx.logger)
		res := eng.Run(ctx)
		combined.absorb(res)

		idx.status.set(func(s *Status) {
			s.Completed = combined.CompletedCount
			s.Failed = combined.FailedCount
		})
	}

	combined.finalize()
	idx.status.set(func(s *Status) {
		s.Phase = PhaseDone
		s.Outcome = combined.Outcome
		s.FinishedAt = time.Now()
	})
	return combined, nil
}

// TreePreview bundles one source tree's execution-plan preview with the
// decision-level summary and pre-computed path sets that drove it (spec.md
// §3's rebuild/delete sets), for callers that report dry-run counts beyond
// the plan's per-task-type totals.
type TreePreview struct {
	Exec                execution.Preview
	Decisions           types.Summary
	FilesToRebuild      []string
	FilesToDelete       []string
	DirectoriesToDelete []string
}

// Preview builds every configured source tree's plan without executing any
// task, matching the "preview mode" contract in spec.md §4.5: a pure read,
// zero side effects.
func (idx *Indexer) Preview(mode decision.Mode) ([]TreePreview, error) {
	reg, jobs, err := idx.buildJobs()
	if err != nil {
		return nil, err
	}

	walker := discovery.NewWalker(idx.logger)
	decEngine := decision.NewEngine(idx.logger).WithProjectRoot(idx.cfg.SourceRoot)
	gen := plan.NewGenerator()

	previews := make([]TreePreview, 0, len(jobs))
	for i, job := range jobs {
		tree, err := walker.Walk(job.root, job.h)
		if err != nil {
			return nil, fmt.Errorf("discovering %s: %w", job.root, err)
		}

		var treeReg *handler.Registry
		if i == 0 {
			treeReg = reg
		}
		report := decEngine.Build(tree, job.h, treeReg, job.root, mode)

		execPlan, err := gen.Generate(tree, report, job.root)
		if err != nil {
			return nil, fmt.Errorf("planning %s: %w", job.root, err)
		}

		fileSet := collectFileSet(tree)
		previews = append(previews, TreePreview{
			Exec:                execution.BuildPreview(execPlan),
			Decisions:           report.Summarize(),
			FilesToRebuild:      report.FilesToRebuild(func(p string) bool { return fileSet[p] }),
			FilesToDelete:       report.FilesToDelete(),
			DirectoriesToDelete: report.DirectoriesToDelete(),
		})
	}
	return previews, nil
}

// collectFileSet flattens tree into the set of every discovered file path,
// for FilesToRebuild's isFile predicate (a rebuild decision's path alone
// cannot tell a file from a directory; ReasonDecisionError is emitted by
// both).
func collectFileSet(tree *types.DirectoryNode) map[string]bool {
	set := make(map[string]bool)
	var walk func(n *types.DirectoryNode)
	walk = func(n *types.DirectoryNode) {
		for _, f := range n.Files {
			set[f.FilePath] = true
		}
		for _, sub := range n.Subdirs {
			walk(sub)
		}
	}
	walk(tree)
	return set
}

func (idx *Indexer) fail(err error) {
	idx.status.set(func(s *Status) {
		s.Phase = PhaseFailed
		s.Outcome = "failed"
		s.LastError = err.Error()
		s.FinishedAt = time.Now()
	})
}
