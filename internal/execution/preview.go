package execution

import "github.com/jcjorel/kb-indexer/internal/types"

// PreviewTask is one task's human-readable description in a preview report.
type PreviewTask struct {
	TaskID       string
	TaskType     types.TaskType
	TargetPath   string
	Dependencies []string
	Priority     int
}

// Preview summarizes a plan without executing any task (spec.md §4.5
// "Preview mode"). It only reads the plan; it has no side effects.
type Preview struct {
	TaskCountByType  map[types.TaskType]int
	LLMTaskCount     int
	MaxParallelWidth int
	Tasks            []PreviewTask
}

// BuildPreview reads p and produces a Preview report.
func BuildPreview(p *types.ExecutionPlan) Preview {
	preview := Preview{
		TaskCountByType:  make(map[types.TaskType]int),
		MaxParallelWidth: p.MaxParallelWidth(),
	}

	for _, task := range p.Tasks() {
		preview.TaskCountByType[task.TaskType]++
		if task.TaskType == types.TaskAnalyzeFileLLM || task.TaskType == types.TaskCreateDirectoryKB {
			preview.LLMTaskCount++
		}

		deps := make([]string, 0, len(task.Dependencies))
		for dep := range task.Dependencies {
			deps = append(deps, dep)
		}
		preview.Tasks = append(preview.Tasks, PreviewTask{
			TaskID:       task.TaskID,
			TaskType:     task.TaskType,
			TargetPath:   task.TargetPath,
			Dependencies: deps,
			Priority:     task.Priority,
		})
	}
	return preview
}
