package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jcjorel/kb-indexer/internal/decision"
	"github.com/jcjorel/kb-indexer/internal/discovery"
	"github.com/jcjorel/kb-indexer/internal/handler"
	"github.com/jcjorel/kb-indexer/internal/types"
)

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// TestCleanBuildProducesExpectedTaskSet mirrors spec.md §8 Scenario A: a
// clean build of /p/a.py and /p/sub/b.py with no existing cache or KB.
func TestCleanBuildProducesExpectedTaskSet(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFixture(t, filepath.Join(root, "a.py"), "a")
	writeFixture(t, filepath.Join(root, "sub", "b.py"), "b")

	out := filepath.Join(root, ".knowledge")
	h := &handler.ProjectHandler{OutputRoot: out}
	reg := handler.NewRegistry(nil, h)

	tree, err := discovery.NewWalker(nil).Walk(root, h)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	report := decision.NewEngine(nil).Build(tree, h, reg, root, decision.ModeIncremental)

	p, err := NewGenerator().Generate(tree, report, root)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	byType := make(map[types.TaskType]int)
	for _, task := range p.Tasks() {
		byType[task.TaskType]++
	}

	want := map[types.TaskType]int{
		types.TaskCreateCacheStructure: 1,
		types.TaskAnalyzeFileLLM:       2, // a.py, sub/b.py
		types.TaskVerifyCacheFreshness: 2,
		types.TaskCreateDirectoryKB:    2, // sub, root
		types.TaskVerifyKBFreshness:    2,
	}
	for tt, n := range want {
		if byType[tt] != n {
			t.Errorf("task type %s count = %d, want %d", tt, byType[tt], n)
		}
	}

	// Ordering in the topological order: the cache structure task must
	// precede a file analysis task, and a child directory's task must precede
	// its parent directory's task.
	indexOf := make(map[string]int)
	for i, task := range p.Tasks() {
		indexOf[task.TaskID] = i
	}
	aFileID := fileTaskID(filepath.Join(root, "a.py"))
	subDirID := dirTaskID(filepath.Join(root, "sub"))
	rootDirID := dirTaskID(root)
	if indexOf[createCacheStructureTaskID] >= indexOf[aFileID] {
		t.Error("create_cache_structure must precede file analysis tasks")
	}
	if indexOf[subDirID] >= indexOf[rootDirID] {
		t.Error("sub directory task must precede root directory task")
	}
}

// TestUnchangedRerunYieldsOnlySkipTasks verifies Scenario B: once every
// artifact is fresh, the plan contains zero LLM-calling tasks.
func TestUnchangedRerunYieldsOnlySkipTasks(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFixture(t, filepath.Join(root, "a.py"), "a")

	out := filepath.Join(root, ".knowledge")
	h := &handler.ProjectHandler{OutputRoot: out}
	reg := handler.NewRegistry(nil, h)

	time.Sleep(10 * time.Millisecond)
	aCache, _ := h.CachePathFor(filepath.Join(root, "a.py"), root)
	writeFixture(t, aCache, "analysis")
	rootKB, _ := h.KBPathFor(root, root)
	writeFixture(t, rootKB, "kb")

	tree, err := discovery.NewWalker(nil).Walk(root, h)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	report := decision.NewEngine(nil).Build(tree, h, reg, root, decision.ModeIncremental)

	p, err := NewGenerator().Generate(tree, report, root)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, task := range p.Tasks() {
		if task.TaskType == types.TaskAnalyzeFileLLM || task.TaskType == types.TaskCreateDirectoryKB {
			t.Errorf("unexpected rebuild task in unchanged rerun: %s (%s)", task.TaskID, task.TaskType)
		}
	}
}

// TestOrphanedDirectoryDeletionDependsOnNestedFileDeletion verifies that a
// DELETE_ORPHANED_DIRECTORY task only becomes ready once every deletion
// nested under it (here, the orphaned cache file directly inside it) has
// completed.
func TestOrphanedDirectoryDeletionDependsOnNestedFileDeletion(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFixture(t, filepath.Join(root, "sub", "a.py"), "a")

	out := filepath.Join(root, ".knowledge")
	h := &handler.ProjectHandler{OutputRoot: out}
	aCache, _ := h.CachePathFor(filepath.Join(root, "sub", "a.py"), root)
	writeFixture(t, aCache, "analysis")
	subKB, _ := h.KBPathFor(filepath.Join(root, "sub"), root)
	writeFixture(t, subKB, "kb")
	subOutDir := filepath.Dir(subKB)

	if err := os.RemoveAll(filepath.Join(root, "sub")); err != nil {
		t.Fatalf("removeAll: %v", err)
	}

	reg := handler.NewRegistry(nil, h)
	tree, err := discovery.NewWalker(nil).Walk(root, h)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	report := decision.NewEngine(nil).Build(tree, h, reg, root, decision.ModeIncremental)

	p, err := NewGenerator().Generate(tree, report, root)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var dirDeleteTask *types.AtomicTask
	for i, task := range p.Tasks() {
		if task.TargetPath == subOutDir && task.TaskType == types.TaskDeleteOrphanedDirectory {
			dirDeleteTask = &p.Tasks()[i]
		}
	}
	if dirDeleteTask == nil {
		t.Fatalf("expected a DELETE_ORPHANED_DIRECTORY task for %q", subOutDir)
	}
	if len(dirDeleteTask.Dependencies) == 0 {
		t.Error("directory deletion task has no dependencies, want at least the nested file deletion")
	}
	for id := range dirDeleteTask.Dependencies {
		if id == createCacheStructureTaskID {
			t.Error("directory deletion should not depend on the cache structure task")
		}
	}
}

// TestPlanIsAcyclic verifies Testable Property 5: NewExecutionPlan's
// validation never rejects a generator-produced plan as cyclic.
func TestPlanIsAcyclic(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFixture(t, filepath.Join(root, "a.py"), "a")
	writeFixture(t, filepath.Join(root, "sub", "deep", "b.py"), "b")

	out := filepath.Join(root, ".knowledge")
	h := &handler.ProjectHandler{OutputRoot: out}
	reg := handler.NewRegistry(nil, h)

	tree, err := discovery.NewWalker(nil).Walk(root, h)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	report := decision.NewEngine(nil).Build(tree, h, reg, root, decision.ModeIncremental)

	p, err := NewGenerator().Generate(tree, report, root)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if p.Len() == 0 {
		t.Fatal("expected a non-empty plan")
	}
	if p.MaxParallelWidth() == 0 {
		t.Error("expected a positive max parallel width")
	}
}
