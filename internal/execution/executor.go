package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jcjorel/kb-indexer/internal/cache"
	"github.com/jcjorel/kb-indexer/internal/summarizer"
	"github.com/jcjorel/kb-indexer/internal/types"
)

// RealExecutor performs every task type's real side effect: LLM calls,
// cache reads/writes, and filesystem deletions. Every artifact write goes
// through the cache package's atomic write, never a direct os.WriteFile
// (spec.md §4.5 "Cancellation": no partial filesystem states).
type RealExecutor struct {
	cache      *cache.Cache
	summarizer summarizer.Summarizer
	logger     *slog.Logger
}

// NewRealExecutor builds a RealExecutor. A nil logger falls back to
// slog.Default().
func NewRealExecutor(c *cache.Cache, s summarizer.Summarizer, logger *slog.Logger) *RealExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealExecutor{cache: c, summarizer: s, logger: logger.With("component", "task-executor")}
}

// Execute implements TaskExecutor by dispatching on task.TaskType. See
// spec.md §4.5 "Task execution" for the contract of each branch.
func (e *RealExecutor) Execute(ctx context.Context, task types.AtomicTask) error {
	switch task.TaskType {
	case types.TaskAnalyzeFileLLM:
		return e.analyzeFile(ctx, task)
	case types.TaskSkipFileCached:
		return nil
	case types.TaskCreateDirectoryKB:
		return e.createDirectoryKB(ctx, task)
	case types.TaskSkipDirectoryFresh:
		return nil
	case types.TaskDeleteOrphanedFile:
		return e.deleteOrphanedFile(task)
	case types.TaskDeleteOrphanedDirectory:
		return e.deleteOrphanedDirectory(task)
	case types.TaskCreateCacheStructure:
		return e.createCacheStructure(task)
	case types.TaskVerifyCacheFreshness:
		return e.verifyCacheFreshness(task)
	case types.TaskVerifyKBFreshness:
		return e.verifyKBFreshness(task)
	default:
		return fmt.Errorf("unknown task type %q", task.TaskType)
	}
}

func (e *RealExecutor) analyzeFile(ctx context.Context, task types.AtomicTask) error {
	meta := task.Metadata
	content, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}

	conversationID := uuid.NewString()
	analysis, err := e.summarizer.AnalyzeFile(ctx, conversationID, meta.SourcePath, string(content))
	if err != nil {
		return fmt.Errorf("analyzing file: %w", err)
	}

	if err := e.cache.Write(meta.CachePath, meta.SourcePath, analysis, time.Now()); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

func (e *RealExecutor) createDirectoryKB(ctx context.Context, task types.AtomicTask) error {
	meta := task.Metadata

	childAnalyses := make([]string, 0, len(meta.ChildFiles))
	for _, cf := range meta.ChildFiles {
		stripped, ok, err := e.cache.ReadStripped(cf.CachePath)
		if err != nil {
			return fmt.Errorf("reading cache for %s: %w", cf.SourcePath, err)
		}
		if !ok {
			e.logger.Warn("cache missing for child file at directory build time, skipping", "path", cf.SourcePath)
			continue
		}
		childAnalyses = append(childAnalyses, stripped)
	}

	childKBs := make([]string, 0, len(meta.ChildDirs))
	for _, cd := range meta.ChildDirs {
		content, err := os.ReadFile(cd.KBPath)
		if err != nil {
			if os.IsNotExist(err) {
				e.logger.Warn("knowledge file missing for child directory at build time, skipping", "path", cd.DirPath)
				continue
			}
			return fmt.Errorf("reading knowledge file for %s: %w", cd.DirPath, err)
		}
		childKBs = append(childKBs, string(content))
	}

	conversationID := uuid.NewString()
	body, err := e.summarizer.SummarizeDirectory(ctx, conversationID, meta.DirPath, childAnalyses, childKBs)
	if err != nil {
		return fmt.Errorf("summarizing directory: %w", err)
	}

	if err := cache.WriteKB(meta.KBPath, body); err != nil {
		return fmt.Errorf("writing knowledge file: %w", err)
	}
	return nil
}

func (e *RealExecutor) deleteOrphanedFile(task types.AtomicTask) error {
	if err := os.Remove(task.TargetPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting orphaned file: %w", err)
	}
	return nil
}

func (e *RealExecutor) deleteOrphanedDirectory(task types.AtomicTask) error {
	err := os.Remove(task.TargetPath)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	// Non-empty directories are a warning, never an error (spec.md §4.5).
	e.logger.Warn("orphaned directory is not empty, leaving in place", "path", task.TargetPath, "error", err)
	return nil
}

func (e *RealExecutor) createCacheStructure(task types.AtomicTask) error {
	return cache.PrepareStructure(task.Metadata.CacheDirs)
}

func (e *RealExecutor) verifyCacheFreshness(task types.AtomicTask) error {
	meta := task.Metadata
	fresh, reason, err := cache.IsFresh(meta.CachePath, meta.SourcePath)
	if err != nil {
		return fmt.Errorf("verifying cache freshness: %w", err)
	}
	if !fresh {
		return fmt.Errorf("cache still stale after rebuild: %s", reason)
	}
	return nil
}

func (e *RealExecutor) verifyKBFreshness(task types.AtomicTask) error {
	meta := task.Metadata
	kbInfo, err := os.Stat(meta.KBPath)
	if err != nil {
		return fmt.Errorf("verifying knowledge file freshness: %w", err)
	}
	kbTime := kbInfo.ModTime()

	for _, cf := range meta.ChildFiles {
		srcInfo, err := os.Stat(cf.SourcePath)
		if err != nil {
			continue
		}
		if srcInfo.ModTime().After(kbTime) {
			return fmt.Errorf("knowledge file still stale: source %s is newer", cf.SourcePath)
		}
	}
	for _, cd := range meta.ChildDirs {
		childInfo, err := os.Stat(cd.KBPath)
		if err != nil {
			continue
		}
		if childInfo.ModTime().After(kbTime) {
			return fmt.Errorf("knowledge file still stale: child knowledge %s is newer", cd.KBPath)
		}
	}
	return nil
}
