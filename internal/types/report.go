package types

// DecisionReport is the union of every decision rendered for one run, keyed
// by path. It is built once by the decision engine and never mutated
// afterward; the plan generator only reads it.
type DecisionReport struct {
	rebuilds  map[string]RebuildDecision
	deletions map[string]DeletionDecision

	// order preserves the order decisions were first recorded, for
	// deterministic plan generation.
	rebuildOrder  []string
	deletionOrder []string
}

// NewDecisionReport creates an empty report ready to be populated by the
// decision engine via AddRebuild/AddDeletion.
func NewDecisionReport() *DecisionReport {
	return &DecisionReport{
		rebuilds:  make(map[string]RebuildDecision),
		deletions: make(map[string]DeletionDecision),
	}
}

// AddRebuild records a RebuildDecision, keyed by its path.
func (r *DecisionReport) AddRebuild(d RebuildDecision) {
	if _, exists := r.rebuilds[d.Path()]; !exists {
		r.rebuildOrder = append(r.rebuildOrder, d.Path())
	}
	r.rebuilds[d.Path()] = d
}

// AddDeletion records a DeletionDecision, keyed by its path.
func (r *DecisionReport) AddDeletion(d DeletionDecision) {
	if _, exists := r.deletions[d.Path()]; !exists {
		r.deletionOrder = append(r.deletionOrder, d.Path())
	}
	r.deletions[d.Path()] = d
}

// Decision returns the rebuild decision recorded for path, if any.
func (r *DecisionReport) Decision(path string) (RebuildDecision, bool) {
	d, ok := r.rebuilds[path]
	return d, ok
}

// DeletionDecisionFor returns the deletion decision recorded for path, if any.
func (r *DecisionReport) DeletionDecisionFor(path string) (DeletionDecision, bool) {
	d, ok := r.deletions[path]
	return d, ok
}

// Rebuilds returns every rebuild decision in the order it was first recorded.
func (r *DecisionReport) Rebuilds() []RebuildDecision {
	out := make([]RebuildDecision, 0, len(r.rebuildOrder))
	for _, p := range r.rebuildOrder {
		out = append(out, r.rebuilds[p])
	}
	return out
}

// Deletions returns every deletion decision in the order it was first recorded.
func (r *DecisionReport) Deletions() []DeletionDecision {
	out := make([]DeletionDecision, 0, len(r.deletionOrder))
	for _, p := range r.deletionOrder {
		out = append(out, r.deletions[p])
	}
	return out
}

// FilesToRebuild returns the paths of every file-level REBUILD decision.
func (r *DecisionReport) FilesToRebuild(isFile func(path string) bool) []string {
	var out []string
	for _, p := range r.rebuildOrder {
		d := r.rebuilds[p]
		if d.Outcome() == OutcomeRebuild && isFile(p) {
			out = append(out, p)
		}
	}
	return out
}

// FilesToDelete returns the paths of every safe-to-delete deletion decision
// targeting a file-level artifact (knowledge file, analysis cache, or an
// excluded source artifact) — every reason except ReasonOrphanedDirectory.
func (r *DecisionReport) FilesToDelete() []string {
	var out []string
	for _, p := range r.deletionOrder {
		d := r.deletions[p]
		if d.IsSafeToDelete() && d.Reason() != ReasonOrphanedDirectory {
			out = append(out, p)
		}
	}
	return out
}

// DirectoriesToDelete returns the paths of deletion decisions flagged against
// now-empty orphaned directories.
func (r *DecisionReport) DirectoriesToDelete() []string {
	var out []string
	for _, p := range r.deletionOrder {
		d := r.deletions[p]
		if d.IsSafeToDelete() && d.Reason() == ReasonOrphanedDirectory {
			out = append(out, p)
		}
	}
	return out
}

// Summary holds the counts the trigger surface reports back to callers.
type Summary struct {
	Rebuilt int
	Skipped int
	Errored int
	Deleted int
}

// Summarize counts every decision by outcome.
func (r *DecisionReport) Summarize() Summary {
	var s Summary
	for _, p := range r.rebuildOrder {
		switch r.rebuilds[p].Outcome() {
		case OutcomeRebuild:
			s.Rebuilt++
		case OutcomeSkip:
			s.Skipped++
		case OutcomeError:
			s.Errored++
		}
	}
	for _, p := range r.deletionOrder {
		if r.deletions[p].IsSafeToDelete() {
			s.Deleted++
		}
	}
	return s
}
