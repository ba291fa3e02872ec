package types

import "fmt"

// ExecutionPlan is a validated, acyclic set of atomic tasks together with a
// topological order and a cached dependency-level map (tasks sharing a level
// have no dependency relationship between them and may run concurrently).
type ExecutionPlan struct {
	tasks      map[string]AtomicTask
	order      []string // topological order, stable
	levels     [][]string
	levelOf    map[string]int
}

// NewExecutionPlan validates and constructs a plan from a flat task list.
// It verifies that every dependency id exists and that the dependency graph
// is acyclic; either failure aborts planning, matching spec.md §4.4.
func NewExecutionPlan(tasks []AtomicTask) (*ExecutionPlan, error) {
	byID := make(map[string]AtomicTask, len(tasks))
	for _, t := range tasks {
		if _, dup := byID[t.TaskID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.TaskID)
		}
		byID[t.TaskID] = t
	}
	for _, t := range tasks {
		for dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", t.TaskID, dep)
			}
		}
	}

	order, levelOf, err := topoSort(byID)
	if err != nil {
		return nil, err
	}

	maxLevel := 0
	for _, lvl := range levelOf {
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}
	levels := make([][]string, maxLevel+1)
	for _, id := range order {
		lvl := levelOf[id]
		levels[lvl] = append(levels[lvl], id)
	}

	return &ExecutionPlan{tasks: byID, order: order, levels: levels, levelOf: levelOf}, nil
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// topoSort performs a depth-first, three-colour-marked topological sort and
// simultaneously computes each task's dependency level (longest path from a
// task with no dependencies).
func topoSort(byID map[string]AtomicTask) ([]string, map[string]int, error) {
	colors := make(map[string]color, len(byID))
	levelOf := make(map[string]int, len(byID))
	var order []string

	// Stable iteration order for determinism given identical inputs.
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sortStrings(ids)

	var visit func(id string, stack []string) error
	visit = func(id string, stack []string) error {
		switch colors[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("dependency cycle detected at task %q: %v", id, append(stack, id))
		}
		colors[id] = gray
		level := 0
		deps := make([]string, 0, len(byID[id].Dependencies))
		for dep := range byID[id].Dependencies {
			deps = append(deps, dep)
		}
		sortStrings(deps)
		for _, dep := range deps {
			if err := visit(dep, append(stack, id)); err != nil {
				return err
			}
			if levelOf[dep]+1 > level {
				level = levelOf[dep] + 1
			}
		}
		colors[id] = black
		levelOf[id] = level
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, nil, err
		}
	}
	return order, levelOf, nil
}

// sortStrings is a tiny insertion sort to avoid pulling in sort for what is
// always a small slice; kept here rather than in a shared util package
// because it is only ever used inside topoSort's determinism requirement.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Tasks returns every task in topological order.
func (p *ExecutionPlan) Tasks() []AtomicTask {
	out := make([]AtomicTask, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.tasks[id])
	}
	return out
}

// Task returns the task with the given id.
func (p *ExecutionPlan) Task(id string) (AtomicTask, bool) {
	t, ok := p.tasks[id]
	return t, ok
}

// Levels returns the dependency-level map: Levels()[k] is every task whose
// longest dependency chain has length k. Tasks within one level may run
// concurrently; level k+1 may only start once level k has fully completed.
func (p *ExecutionPlan) Levels() [][]string {
	return p.levels
}

// Len returns the number of tasks in the plan.
func (p *ExecutionPlan) Len() int {
	return len(p.tasks)
}

// MaxParallelWidth returns the size of the largest dependency level, used by
// preview mode to report the plan's maximum possible concurrency.
func (p *ExecutionPlan) MaxParallelWidth() int {
	width := 0
	for _, lvl := range p.levels {
		if len(lvl) > width {
			width = len(lvl)
		}
	}
	return width
}
