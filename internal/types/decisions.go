package types

// Outcome is the closed verdict a decision can carry.
type Outcome string

const (
	OutcomeRebuild Outcome = "REBUILD"
	OutcomeSkip    Outcome = "SKIP"
	OutcomeError   Outcome = "ERROR"
	OutcomeDelete  Outcome = "DELETE"
)

// RebuildReason is the closed enum of reasons a RebuildDecision can carry.
// CachedAnalysesNewer is retained in the vocabulary for audit compatibility
// but, per spec.md §9 (Open Questions), no decision emits it: the write order
// guaranteed by the cache and plan makes that state unreachable.
type RebuildReason string

const (
	ReasonKnowledgeFileMissing      RebuildReason = "KNOWLEDGE_FILE_MISSING"
	ReasonSourceFilesNewer          RebuildReason = "SOURCE_FILES_NEWER"
	ReasonCachedAnalysesNewer       RebuildReason = "CACHED_ANALYSES_NEWER"
	ReasonSubdirectoryKnowledgeNewer RebuildReason = "SUBDIRECTORY_KNOWLEDGE_NEWER"
	ReasonCacheStale                RebuildReason = "CACHE_STALE"
	ReasonCacheFresh                RebuildReason = "CACHE_FRESH"
	ReasonUpToDate                  RebuildReason = "UP_TO_DATE"
	ReasonEmptyDirectory            RebuildReason = "EMPTY_DIRECTORY"
	ReasonChildDirectoryRebuilt     RebuildReason = "CHILD_DIRECTORY_REBUILT"
	ReasonComprehensiveStaleness    RebuildReason = "COMPREHENSIVE_STALENESS"
	ReasonDecisionError             RebuildReason = "DECISION_ERROR"
)

// contentDriven is the set of reasons that seed cascading rebuilds up the
// ancestor chain (spec.md §4.3 Phase 4). ChildDirectoryRebuilt is explicitly
// excluded: cascading triggered by cascading is not re-expanded.
var contentDriven = map[RebuildReason]bool{
	ReasonKnowledgeFileMissing:       true,
	ReasonSourceFilesNewer:           true,
	ReasonCachedAnalysesNewer:        true,
	ReasonSubdirectoryKnowledgeNewer: true,
	ReasonCacheStale:                 true,
	ReasonComprehensiveStaleness:     true,
}

// IsContentDriven reports whether this reason seeds a cascade.
func (r RebuildReason) IsContentDriven() bool {
	return contentDriven[r]
}

// DeletionReason is the closed enum of reasons a DeletionDecision can carry.
type DeletionReason string

const (
	ReasonOrphanedKnowledgeFile  DeletionReason = "ORPHANED_KNOWLEDGE_FILE"
	ReasonOrphanedAnalysisCache  DeletionReason = "ORPHANED_ANALYSIS_CACHE"
	ReasonExcludedSource         DeletionReason = "EXCLUDED_SOURCE"
	// ReasonOrphanedDirectory flags a now-empty output-area directory whose
	// hypothetical source directory no longer exists or is now excluded
	// (spec.md §4.3 Phase 3, §3 directories_to_delete).
	ReasonOrphanedDirectory DeletionReason = "ORPHANED_DIRECTORY"
)

// RebuildDecision is an immutable verdict about whether a file or directory
// needs to be (re)built. Construct via NewRebuildDecision; there are no
// exported mutators.
type RebuildDecision struct {
	path          string
	outcome       Outcome
	reason        RebuildReason
	reasoningText string
	metadata      map[string]any
}

// NewRebuildDecision constructs an immutable RebuildDecision.
func NewRebuildDecision(path string, outcome Outcome, reason RebuildReason, reasoningText string, metadata map[string]any) RebuildDecision {
	return RebuildDecision{
		path:          path,
		outcome:       outcome,
		reason:        reason,
		reasoningText: reasoningText,
		metadata:      metadata,
	}
}

func (d RebuildDecision) Path() string               { return d.path }
func (d RebuildDecision) Outcome() Outcome            { return d.outcome }
func (d RebuildDecision) Reason() RebuildReason       { return d.reason }
func (d RebuildDecision) ReasoningText() string       { return d.reasoningText }
func (d RebuildDecision) Metadata() map[string]any    { return d.metadata }

// DeletionDecision is an immutable verdict that a stray artifact should be
// removed. IsSafeToDelete must be true for the executor to act on it.
type DeletionDecision struct {
	path          string
	reason        DeletionReason
	isSafeToDelete bool
}

// NewDeletionDecision constructs an immutable DeletionDecision. Outcome is
// always DELETE for this type, per spec.md §3.
func NewDeletionDecision(path string, reason DeletionReason, isSafeToDelete bool) DeletionDecision {
	return DeletionDecision{path: path, reason: reason, isSafeToDelete: isSafeToDelete}
}

func (d DeletionDecision) Path() string             { return d.path }
func (d DeletionDecision) Outcome() Outcome          { return OutcomeDelete }
func (d DeletionDecision) Reason() DeletionReason    { return d.reason }
func (d DeletionDecision) IsSafeToDelete() bool      { return d.isSafeToDelete }
