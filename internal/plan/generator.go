// Package plan converts a DecisionReport into a validated ExecutionPlan: one
// atomic task per file decision, per directory decision, and per deletion,
// plus a single upfront cache-structure task and a verification task after
// every REBUILD. See spec.md §4.4.
package plan

import (
	"path/filepath"
	"strings"

	"github.com/jcjorel/kb-indexer/internal/types"
)

// Generator builds an ExecutionPlan from a DirectoryNode tree and the
// DecisionReport rendered over it.
type Generator struct{}

// NewGenerator creates a plan Generator. It holds no state between calls.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds and validates an ExecutionPlan. sourceRoot is carried into
// every task's metadata so the execution engine never needs to re-derive it.
func (g *Generator) Generate(tree *types.DirectoryNode, report *types.DecisionReport, sourceRoot string) (*types.ExecutionPlan, error) {
	b := &builder{report: report, sourceRoot: sourceRoot}
	b.addDeletionTasks()
	b.addCacheStructureTask(tree)
	b.visitDirectory(tree)
	return types.NewExecutionPlan(b.tasks)
}

// builder accumulates tasks while walking the tree leaf-first. seq is a
// monotonic counter, not a wall clock, used only as the ascending
// CreatedAt tie-breaker within a ready batch (spec.md §4.5 "Ordering").
type builder struct {
	report      *types.DecisionReport
	sourceRoot  string
	tasks       []types.AtomicTask
	seq         int
	deletionIDs []string
}

func (b *builder) next() int {
	b.seq++
	return b.seq
}

// addDeletionTasks emits one DELETE_ORPHANED_FILE task per safe-to-delete
// file-level decision and one DELETE_ORPHANED_DIRECTORY task per safe-to-
// delete directory-level decision (spec.md §4.4: deletions execute first). A
// directory deletion depends on every other deletion nested under it, file or
// directory, so a directory is only ever removed once everything inside it is
// already gone.
func (b *builder) addDeletionTasks() {
	deletions := b.report.Deletions()
	for _, d := range deletions {
		if !d.IsSafeToDelete() {
			continue
		}
		id := deleteTaskID(d.Path())
		b.deletionIDs = append(b.deletionIDs, id)

		taskType := types.TaskDeleteOrphanedFile
		priority := types.PriorityDeletion
		deps := map[string]struct{}{}
		if d.Reason() == types.ReasonOrphanedDirectory {
			taskType = types.TaskDeleteOrphanedDirectory
			priority = types.PriorityDirectoryDeletion
			for _, other := range deletions {
				if other.IsSafeToDelete() && isNestedUnder(other.Path(), d.Path()) {
					deps[deleteTaskID(other.Path())] = struct{}{}
				}
			}
		}

		b.tasks = append(b.tasks, types.AtomicTask{
			TaskID:            id,
			TaskType:          taskType,
			TargetPath:        d.Path(),
			Dependencies:      deps,
			Priority:          priority,
			EstimatedDuration: 0.05,
			CreatedAt:         b.next(),
			Metadata: types.TaskMetadata{
				SourceRoot: b.sourceRoot,
				Reason:     string(d.Reason()),
			},
		})
	}
}

// isNestedUnder reports whether path is a proper, path-separator-bounded
// descendant of ancestor (not merely a string-prefix match, which would
// mistake a sibling like /out2 for a descendant of /out).
func isNestedUnder(path, ancestor string) bool {
	return path != ancestor && strings.HasPrefix(path, ancestor+string(filepath.Separator))
}

// addCacheStructureTask emits the single CREATE_CACHE_STRUCTURE task,
// carrying every cache/KB directory that a REBUILD or ANALYZE task will
// write into. Pre-creating them up front converts the concurrent-mkdir race
// between workers into a single sequential step (spec.md §4.6, §5).
func (b *builder) addCacheStructureTask(tree *types.DirectoryNode) {
	dirs := collectCacheDirs(tree, b.report)
	b.tasks = append(b.tasks, types.AtomicTask{
		TaskID:            createCacheStructureTaskID,
		TaskType:          types.TaskCreateCacheStructure,
		TargetPath:        tree.DirPath,
		Dependencies:      map[string]struct{}{},
		Priority:          types.PriorityCacheStructure,
		EstimatedDuration: 0.1,
		CreatedAt:         b.next(),
		Metadata: types.TaskMetadata{
			SourceRoot: b.sourceRoot,
			CacheDirs:  dirs,
		},
	})
}

func collectCacheDirs(tree *types.DirectoryNode, report *types.DecisionReport) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if d == "" || seen[d] {
			return
		}
		seen[d] = true
		dirs = append(dirs, d)
	}

	var walk func(n *types.DirectoryNode)
	walk = func(n *types.DirectoryNode) {
		if d, ok := report.Decision(n.DirPath); ok && d.Outcome() != types.OutcomeSkip {
			add(filepath.Dir(n.KBPath))
		}
		for _, f := range n.Files {
			if d, ok := report.Decision(f.FilePath); ok && d.Outcome() != types.OutcomeSkip {
				add(filepath.Dir(cachePathFromMetadata(d)))
			}
		}
		for _, sub := range n.Subdirs {
			walk(sub)
		}
	}
	walk(tree)
	return dirs
}

func cachePathFromMetadata(d types.RebuildDecision) string {
	if m := d.Metadata(); m != nil {
		if v, ok := m["cache_path"].(string); ok {
			return v
		}
	}
	return ""
}

// visitDirectory recurses subdirectories first so every child task id exists
// before the parent directory task that depends on it is built, then emits
// this directory's own file tasks and directory task. It returns the task id
// of node's own directory task, for the caller (its parent) to depend on.
func (b *builder) visitDirectory(node *types.DirectoryNode) string {
	var childDirIDs []string
	var childDirMeta []types.ChildDirMeta
	for _, sub := range node.Subdirs {
		childDirIDs = append(childDirIDs, b.visitDirectory(sub))
		childDirMeta = append(childDirMeta, types.ChildDirMeta{DirPath: sub.DirPath, KBPath: sub.KBPath})
	}

	var childFileIDs []string
	var childFileMeta []types.ChildFileMeta
	for _, f := range node.Files {
		id, cachePath := b.addFileTask(f)
		childFileIDs = append(childFileIDs, id)
		childFileMeta = append(childFileMeta, types.ChildFileMeta{SourcePath: f.FilePath, CachePath: cachePath})
	}

	return b.addDirTask(node, childFileIDs, childDirIDs, childFileMeta, childDirMeta)
}

// baseFileDeps is the dependency set shared by every file task: every
// deletion must run first (so a rebuild never races a stale artifact's
// removal), and the cache directories must already exist.
func (b *builder) baseFileDeps() map[string]struct{} {
	deps := make(map[string]struct{}, len(b.deletionIDs)+1)
	for _, id := range b.deletionIDs {
		deps[id] = struct{}{}
	}
	deps[createCacheStructureTaskID] = struct{}{}
	return deps
}

func depSet(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// addFileTask emits ANALYZE_FILE_LLM (plus its VERIFY_CACHE_FRESHNESS) or
// SKIP_FILE_CACHED for f, and returns its own task id plus its cache path
// for the parent directory task's metadata.
func (b *builder) addFileTask(f types.FileNode) (string, string) {
	decision, hasDecision := b.report.Decision(f.FilePath)
	cachePath := ""
	if hasDecision {
		cachePath = cachePathFromMetadata(decision)
	}

	id := fileTaskID(f.FilePath)
	meta := types.TaskMetadata{
		SourceRoot:    b.sourceRoot,
		SourcePath:    f.FilePath,
		SourceSize:    f.Size,
		SourceModTime: f.ModTime.UnixNano(),
		CachePath:     cachePath,
	}
	if hasDecision {
		meta.Reason = string(decision.Reason())
	}

	if hasDecision && decision.Outcome() == types.OutcomeSkip {
		b.tasks = append(b.tasks, types.AtomicTask{
			TaskID:            id,
			TaskType:          types.TaskSkipFileCached,
			TargetPath:        f.FilePath,
			Dependencies:      b.baseFileDeps(),
			Priority:          types.PrioritySkip,
			EstimatedDuration: 0.1,
			CreatedAt:         b.next(),
			Metadata:          meta,
		})
		return id, cachePath
	}

	// REBUILD, or ERROR: spec.md §7 treats a decision error as conservatively
	// REBUILD rather than silently skipping it.
	b.tasks = append(b.tasks, types.AtomicTask{
		TaskID:            id,
		TaskType:          types.TaskAnalyzeFileLLM,
		TargetPath:        f.FilePath,
		Dependencies:      b.baseFileDeps(),
		Priority:          types.PriorityFileRebuild,
		EstimatedDuration: 30,
		CreatedAt:         b.next(),
		Metadata:          meta,
	})

	b.tasks = append(b.tasks, types.AtomicTask{
		TaskID:            verifyFileTaskID(f.FilePath),
		TaskType:          types.TaskVerifyCacheFreshness,
		TargetPath:        f.FilePath,
		Dependencies:      depSet(id),
		Priority:          types.PriorityVerification,
		EstimatedDuration: 0.05,
		CreatedAt:         b.next(),
		Metadata:          meta,
	})
	return id, cachePath
}

// addDirTask emits CREATE_DIRECTORY_KB (plus its VERIFY_KB_FRESHNESS) or
// SKIP_DIRECTORY_FRESH for node, depending on every one of node's own file
// tasks plus every direct child's directory task (leaf-first execution).
func (b *builder) addDirTask(node *types.DirectoryNode, fileIDs, dirIDs []string, fileMeta []types.ChildFileMeta, dirMeta []types.ChildDirMeta) string {
	decision, hasDecision := b.report.Decision(node.DirPath)
	id := dirTaskID(node.DirPath)

	deps := make(map[string]struct{}, len(fileIDs)+len(dirIDs))
	for _, fid := range fileIDs {
		deps[fid] = struct{}{}
	}
	for _, did := range dirIDs {
		deps[did] = struct{}{}
	}

	meta := types.TaskMetadata{
		SourceRoot: b.sourceRoot,
		DirPath:    node.DirPath,
		KBPath:     node.KBPath,
		ChildFiles: fileMeta,
		ChildDirs:  dirMeta,
	}
	if hasDecision {
		meta.Reason = string(decision.Reason())
	}

	if hasDecision && decision.Outcome() == types.OutcomeSkip {
		b.tasks = append(b.tasks, types.AtomicTask{
			TaskID:            id,
			TaskType:          types.TaskSkipDirectoryFresh,
			TargetPath:        node.DirPath,
			Dependencies:      deps,
			Priority:          types.PrioritySkip,
			EstimatedDuration: 0.1,
			CreatedAt:         b.next(),
			Metadata:          meta,
		})
		return id
	}

	b.tasks = append(b.tasks, types.AtomicTask{
		TaskID:            id,
		TaskType:          types.TaskCreateDirectoryKB,
		TargetPath:        node.DirPath,
		Dependencies:      deps,
		Priority:          types.PriorityDirectoryRebuild,
		EstimatedDuration: 15,
		CreatedAt:         b.next(),
		Metadata:          meta,
	})

	b.tasks = append(b.tasks, types.AtomicTask{
		TaskID:            verifyDirTaskID(node.DirPath),
		TaskType:          types.TaskVerifyKBFreshness,
		TargetPath:        node.DirPath,
		Dependencies:      depSet(id),
		Priority:          types.PriorityVerification,
		EstimatedDuration: 0.05,
		CreatedAt:         b.next(),
		Metadata:          meta,
	})
	return id
}
