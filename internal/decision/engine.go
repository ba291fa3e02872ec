// Package decision implements the Decision Engine: for every file and
// directory in a discovered tree it renders a RebuildDecision, and for every
// stray artifact in a handler's output area it renders a DeletionDecision.
// See spec.md §4.3.
package decision

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jcjorel/kb-indexer/internal/cache"
	"github.com/jcjorel/kb-indexer/internal/handler"
	"github.com/jcjorel/kb-indexer/internal/types"
)

// Engine renders decisions over a discovered tree.
type Engine struct {
	logger      *slog.Logger
	projectRoot string
}

// NewEngine creates a decision Engine. A nil logger falls back to
// slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "decision")}
}

// WithProjectRoot records the project root used to encode a cache envelope's
// portable "Source File:" path, so the orphan scan can decode it back to an
// authoritative absolute path. Returns e for chaining.
func (e *Engine) WithProjectRoot(projectRoot string) *Engine {
	e.projectRoot = projectRoot
	return e
}

// Build renders a complete DecisionReport: file decisions (Phase 1),
// directory decisions leaf-first (Phase 2), deletion decisions across every
// registered handler's output area (Phase 3), and cascading propagation
// (Phase 4).
func (e *Engine) Build(tree *types.DirectoryNode, h handler.Handler, reg *handler.Registry, sourceRoot string, mode Mode) *types.DecisionReport {
	report := types.NewDecisionReport()

	// Phases 1-2: files then directories, leaf-first via post-order walk.
	e.decideDirectory(tree, h, sourceRoot, mode, report)

	// Phase 3: deletions, scanned across every registered handler. The
	// directory-orphan pass runs after the file-orphan pass so it can see
	// which files are already slated for removal when judging emptiness.
	if reg != nil {
		e.decideDeletions(reg, sourceRoot, report)
		e.decideOrphanedDirectories(reg, sourceRoot, report)
	}

	// Phase 4: cascading propagation up the ancestor chain.
	e.cascade(tree, report)

	return report
}

// decideDirectory renders file decisions for dir's own files, recurses into
// subdirectories first (leaf-first order), then renders dir's own directory
// decision.
func (e *Engine) decideDirectory(dir *types.DirectoryNode, h handler.Handler, sourceRoot string, mode Mode, report *types.DecisionReport) {
	for _, sub := range dir.Subdirs {
		e.decideDirectory(sub, h, sourceRoot, mode, report)
	}

	for _, f := range dir.Files {
		report.AddRebuild(e.decideFile(f, h, sourceRoot, mode))
	}

	report.AddRebuild(e.decideDir(dir, h, sourceRoot, mode, report))
}

// decideFile implements spec.md §4.3 Phase 1.
func (e *Engine) decideFile(f types.FileNode, h handler.Handler, sourceRoot string, mode Mode) types.RebuildDecision {
	cachePath, err := h.CachePathFor(f.FilePath, sourceRoot)
	if err != nil {
		e.logger.Error("unable to resolve cache path", "path", f.FilePath, "error", err)
		return types.NewRebuildDecision(f.FilePath, types.OutcomeError, types.ReasonDecisionError,
			fmt.Sprintf("handler failed to resolve cache path: %v", err), nil)
	}

	if mode == ModeFull {
		return types.NewRebuildDecision(f.FilePath, types.OutcomeRebuild, types.ReasonCacheStale,
			"full reindex requested", map[string]any{"cache_path": cachePath})
	}

	fresh, reason, err := cache.IsFresh(cachePath, f.FilePath)
	if err != nil {
		e.logger.Error("error evaluating freshness", "path", f.FilePath, "error", err)
		return types.NewRebuildDecision(f.FilePath, types.OutcomeError, types.ReasonDecisionError,
			fmt.Sprintf("error evaluating cache freshness: %v", err), nil)
	}

	meta := map[string]any{"cache_path": cachePath}
	if fresh {
		return types.NewRebuildDecision(f.FilePath, types.OutcomeSkip, types.ReasonCacheFresh, reason, meta)
	}
	return types.NewRebuildDecision(f.FilePath, types.OutcomeRebuild, types.ReasonCacheStale, reason, meta)
}

// decideDir implements spec.md §4.3 Phase 2.
func (e *Engine) decideDir(dir *types.DirectoryNode, h handler.Handler, sourceRoot string, mode Mode, report *types.DecisionReport) types.RebuildDecision {
	if dir.IsEmpty() {
		return types.NewRebuildDecision(dir.DirPath, types.OutcomeSkip, types.ReasonEmptyDirectory,
			"directory has no included files and no subdirectories", nil)
	}

	if mode == ModeFull || mode == ModeFullKBRebuild {
		return types.NewRebuildDecision(dir.DirPath, types.OutcomeRebuild, types.ReasonComprehensiveStaleness,
			fmt.Sprintf("%s reindex requested", mode), nil)
	}

	kbInfo, err := os.Stat(dir.KBPath)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewRebuildDecision(dir.DirPath, types.OutcomeRebuild, types.ReasonKnowledgeFileMissing,
				fmt.Sprintf("knowledge file does not exist: %s", dir.KBPath), nil)
		}
		e.logger.Error("error stating KB file", "path", dir.KBPath, "error", err)
		return types.NewRebuildDecision(dir.DirPath, types.OutcomeError, types.ReasonDecisionError,
			fmt.Sprintf("error stating knowledge file: %v", err), nil)
	}
	kbTime := kbInfo.ModTime()

	for _, f := range dir.Files {
		if f.ModTime.After(kbTime) {
			return types.NewRebuildDecision(dir.DirPath, types.OutcomeRebuild, types.ReasonSourceFilesNewer,
				fmt.Sprintf("source file %s is newer than knowledge file", f.FilePath), map[string]any{"file": f.FilePath})
		}
	}

	for _, sub := range dir.Subdirs {
		subInfo, err := os.Stat(sub.KBPath)
		if err != nil {
			continue // a missing child KB is handled by that child's own decision, not this one.
		}
		if subInfo.ModTime().After(kbTime) {
			return types.NewRebuildDecision(dir.DirPath, types.OutcomeRebuild, types.ReasonSubdirectoryKnowledgeNewer,
				fmt.Sprintf("subdirectory knowledge %s is newer than %s", sub.KBPath, dir.KBPath), map[string]any{"subdir": sub.DirPath})
		}
	}

	return types.NewRebuildDecision(dir.DirPath, types.OutcomeSkip, types.ReasonUpToDate,
		"knowledge file is up to date with all sources and subdirectory knowledge", nil)
}

// cascade implements spec.md §4.3 Phase 4: any directory whose REBUILD was
// caused by a content-driven reason forces every ancestor up to (and
// including) the source root to REBUILD with CHILD_DIRECTORY_REBUILT,
// overriding a prior SKIP. Cascading triggered by cascading is not
// re-expanded: only content-driven reasons seed new cascades.
func (e *Engine) cascade(tree *types.DirectoryNode, report *types.DecisionReport) {
	// ancestors maps a directory path to its chain of ancestors (closest
	// first), computed once via a single traversal.
	ancestors := make(map[string][]string)
	var walk func(node *types.DirectoryNode, chain []string)
	walk = func(node *types.DirectoryNode, chain []string) {
		ancestors[node.DirPath] = chain
		childChain := append([]string{node.DirPath}, chain...)
		for _, sub := range node.Subdirs {
			walk(sub, childChain)
		}
	}
	walk(tree, nil)

	for _, path := range collectDirPaths(tree) {
		d, ok := report.Decision(path)
		if !ok || d.Outcome() != types.OutcomeRebuild || !d.Reason().IsContentDriven() {
			continue
		}
		for _, ancestor := range ancestors[path] {
			existing, ok := report.Decision(ancestor)
			if ok && existing.Outcome() == types.OutcomeRebuild {
				continue // already REBUILD; don't downgrade its original reason.
			}
			report.AddRebuild(types.NewRebuildDecision(ancestor, types.OutcomeRebuild, types.ReasonChildDirectoryRebuilt,
				fmt.Sprintf("descendant %s was rebuilt for a content reason", path), map[string]any{"descendant": path}))
		}
	}
}

func collectDirPaths(tree *types.DirectoryNode) []string {
	var out []string
	var walk func(n *types.DirectoryNode)
	walk = func(n *types.DirectoryNode) {
		out = append(out, n.DirPath)
		for _, sub := range n.Subdirs {
			walk(sub)
		}
	}
	walk(tree)
	return out
}

// decideDeletions implements spec.md §4.3 Phase 3: every registered
// handler's own output area is scanned for candidate artifacts; any
// candidate whose hypothetical source no longer exists (or is now excluded)
// is flagged for deletion.
func (e *Engine) decideDeletions(reg *handler.Registry, sourceRoot string, report *types.DecisionReport) {
	for _, h := range reg.Handlers() {
		candidates, err := h.EnumerateCleanupCandidates(sourceRoot)
		if err != nil {
			e.logger.Error("unable to enumerate cleanup candidates", "handler", h.Name(), "error", err)
			continue
		}
		for _, candidate := range candidates {
			e.decideCandidate(h, candidate, sourceRoot, report)
		}
	}
}

func (e *Engine) decideCandidate(h handler.Handler, candidate, sourceRoot string, report *types.DecisionReport) {
	if src, ok := h.ReverseMapCache(candidate); ok {
		// The cache envelope itself recorded the source path it was written
		// for; prefer that authoritative value over the handler's
		// reconstruction when the envelope is present and parses cleanly.
		if envSrc, envOK, err := cache.ReadEnvelopeSourcePath(candidate, e.projectRoot); err == nil && envOK {
			src = envSrc
		}
		e.flagIfOrphaned(h, candidate, src, sourceRoot, types.ReasonOrphanedAnalysisCache, report)
		return
	}
	if src, ok := h.ReverseMapKB(candidate); ok {
		e.flagIfOrphaned(h, candidate, src, sourceRoot, types.ReasonOrphanedKnowledgeFile, report)
	}
}

func (e *Engine) flagIfOrphaned(h handler.Handler, candidate, hypotheticalSource, sourceRoot string, reason types.DeletionReason, report *types.DecisionReport) {
	absSource := hypotheticalSource
	if !isAbs(absSource) {
		absSource = joinSourceRoot(sourceRoot, hypotheticalSource)
	}

	if _, err := os.Stat(absSource); err == nil {
		if h.ShouldInclude(absSource, sourceRoot) {
			return // source still exists and is still included: not an orphan.
		}
		report.AddDeletion(types.NewDeletionDecision(candidate, types.ReasonExcludedSource, true))
		return
	}
	report.AddDeletion(types.NewDeletionDecision(candidate, reason, true))
}

// decideOrphanedDirectories implements the second half of spec.md §4.3 Phase
// 3: once file-level orphans are flagged, every handler's output area is
// walked deepest first for directories that are now empty (accounting for
// the file deletions just decided) and whose hypothetical source directory
// no longer exists or is no longer included.
func (e *Engine) decideOrphanedDirectories(reg *handler.Registry, sourceRoot string, report *types.DecisionReport) {
	for _, h := range reg.Handlers() {
		dirs, err := h.EnumerateOutputDirectories(sourceRoot)
		if err != nil {
			e.logger.Error("unable to enumerate output directories", "handler", h.Name(), "error", err)
			continue
		}
		for _, dir := range dirs {
			e.decideOutputDirCandidate(h, dir, sourceRoot, report)
		}
	}
}

func (e *Engine) decideOutputDirCandidate(h handler.Handler, dirPath, sourceRoot string, report *types.DecisionReport) {
	hypotheticalSource, ok := h.ReverseMapOutputDir(dirPath)
	if !ok {
		return
	}

	absSource := hypotheticalSource
	if !isAbs(absSource) {
		absSource = joinSourceRoot(sourceRoot, hypotheticalSource)
	}
	if _, err := os.Stat(absSource); err == nil && h.ShouldInclude(absSource, sourceRoot) {
		return // source directory still exists and is still included: not an orphan.
	}

	if !e.isEmptyAfterPendingDeletions(dirPath, report) {
		return
	}
	report.AddDeletion(types.NewDeletionDecision(dirPath, types.ReasonOrphanedDirectory, true))
}

// isEmptyAfterPendingDeletions reports whether every entry still physically
// present under dirPath is already covered by a safe-to-delete decision
// recorded earlier in this same pass (a file orphan, or a deeper directory
// already flagged, since directories are visited deepest first).
func (e *Engine) isEmptyAfterPendingDeletions(dirPath string, report *types.DecisionReport) bool {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		childPath := filepath.Join(dirPath, entry.Name())
		if d, ok := report.DeletionDecisionFor(childPath); ok && d.IsSafeToDelete() {
			continue
		}
		return false
	}
	return true
}
