package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jcjorel/kb-indexer/internal/config"
	"github.com/jcjorel/kb-indexer/internal/decision"
	"github.com/jcjorel/kb-indexer/internal/summarizer"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

func TestRunIndexesProjectTree(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.py"), "print('a')")
	writeTestFile(t, filepath.Join(root, "sub", "b.py"), "print('b')")

	cfg := config.DefaultConfig()
	cfg.SourceRoot = root
	cfg.OutputRoot = filepath.Join(root, ".knowledge")
	cfg.Handlers.EnableVendoredRepoIndexing = false

	idx := NewIndexer(cfg, &summarizer.NullSummarizer{}, nil)
	res, err := idx.Run(context.Background(), decision.ModeIncremental)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.FailedCount != 0 {
		t.Errorf("FailedCount = %d, want 0: %+v", res.FailedCount, res.FailedTasks)
	}
	if res.Outcome != "completed" {
		t.Errorf("Outcome = %q, want completed", res.Outcome)
	}
	// Two files analyzed, two directories (sub, root) summarized.
	if res.LLMCallCount != 4 {
		t.Errorf("LLMCallCount = %d, want 4", res.LLMCallCount)
	}

	status := idx.Status()
	if status.Phase != PhaseDone {
		t.Errorf("Status().Phase = %q, want done", status.Phase)
	}
	if status.Outcome != "completed" {
		t.Errorf("Status().Outcome = %q, want completed", status.Outcome)
	}
}

func TestRunIsIncrementalOnSecondPass(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.py"), "print('a')")

	cfg := config.DefaultConfig()
	cfg.SourceRoot = root
	cfg.OutputRoot = filepath.Join(root, ".knowledge")
	cfg.Handlers.EnableVendoredRepoIndexing = false

	idx := NewIndexer(cfg, &summarizer.NullSummarizer{}, nil)
	if _, err := idx.Run(context.Background(), decision.ModeIncremental); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	res, err := idx.Run(context.Background(), decision.ModeIncremental)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if res.LLMCallCount != 0 {
		t.Errorf("second pass LLMCallCount = %d, want 0 (everything should be fresh)", res.LLMCallCount)
	}
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.py"), "print('a')")

	cfg := config.DefaultConfig()
	cfg.SourceRoot = root
	cfg.OutputRoot = filepath.Join(root, ".knowledge")
	cfg.Handlers.EnableVendoredRepoIndexing = false

	idx := NewIndexer(cfg, &summarizer.NullSummarizer{}, nil)
	previews, err := idx.Preview(decision.ModeIncremental)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("previews = %d, want 1", len(previews))
	}
	if previews[0].Exec.LLMTaskCount != 2 { // one file analysis, one directory summary
		t.Errorf("Exec.LLMTaskCount = %d, want 2", previews[0].Exec.LLMTaskCount)
	}
	if previews[0].Decisions.Rebuilt != 2 {
		t.Errorf("Decisions.Rebuilt = %d, want 2", previews[0].Decisions.Rebuilt)
	}
	if len(previews[0].FilesToRebuild) != 1 {
		t.Errorf("FilesToRebuild = %v, want 1 entry", previews[0].FilesToRebuild)
	}

	if _, err := os.Stat(cfg.OutputRoot); err == nil {
		t.Error("Preview() must not create any output, but output root exists")
	}
}
