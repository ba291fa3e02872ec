package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jcjorel/kb-indexer/internal/engine"
)

// statusFileName is a small operational bookkeeping file recording the last
// run's outcome, not a knowledge artifact: spec.md's Non-goal on cross-run
// persistence scopes out persisting indexed *content* across runs, not a
// one-line pointer to how the last run went.
const statusFileName = ".kb-indexer-status.json"

// persistedStatus is the JSON-serializable projection of engine.Status plus
// the aggregated engine.Result the status command reports.
type persistedStatus struct {
	Phase          string    `json:"phase"`
	SourceRoot     string    `json:"source_root"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TasksTotal     int       `json:"tasks_total"`
	Completed      int       `json:"completed"`
	Failed         int       `json:"failed"`
	Outcome        string    `json:"outcome"`
	LastError      string    `json:"last_error,omitempty"`
	LLMCallCount   int       `json:"llm_call_count"`
	DurationMillis int64     `json:"duration_millis"`
}

func writeStatusFile(outputRoot string, status engine.Status, res *engine.Result) error {
	ps := persistedStatus{
		Phase:      string(status.Phase),
		SourceRoot: status.SourceRoot,
		StartedAt:  status.StartedAt,
		FinishedAt: status.FinishedAt,
		TasksTotal: status.TasksTotal,
		Completed:  status.Completed,
		Failed:     status.Failed,
		Outcome:    status.Outcome,
		LastError:  status.LastError,
	}
	if res != nil {
		ps.LLMCallCount = res.LLMCallCount
		ps.DurationMillis = res.Duration.Milliseconds()
	}

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}

	path := filepath.Join(outputRoot, statusFileName)
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("creating output root: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readStatusFile(outputRoot string) (*persistedStatus, error) {
	path := filepath.Join(outputRoot, statusFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ps persistedStatus
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("parsing status file: %w", err)
	}
	return &ps, nil
}
