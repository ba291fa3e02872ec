package types

// TaskType is the closed enum of atomic task kinds the plan generator emits.
type TaskType string

const (
	TaskAnalyzeFileLLM        TaskType = "ANALYZE_FILE_LLM"
	TaskSkipFileCached         TaskType = "SKIP_FILE_CACHED"
	TaskCreateDirectoryKB      TaskType = "CREATE_DIRECTORY_KB"
	TaskSkipDirectoryFresh     TaskType = "SKIP_DIRECTORY_FRESH"
	TaskDeleteOrphanedFile     TaskType = "DELETE_ORPHANED_FILE"
	TaskDeleteOrphanedDirectory TaskType = "DELETE_ORPHANED_DIRECTORY"
	TaskCreateCacheStructure   TaskType = "CREATE_CACHE_STRUCTURE"
	TaskVerifyCacheFreshness   TaskType = "VERIFY_CACHE_FRESHNESS"
	TaskVerifyKBFreshness      TaskType = "VERIFY_KB_FRESHNESS"
)

// Priority bands, highest dispatched first within a ready batch.
const (
	PriorityDeletion          = 100
	PriorityDirectoryDeletion = 95
	PriorityCacheStructure    = 90
	PriorityDirectoryRebuild  = 50
	PriorityFileRebuild       = 50
	PrioritySkip              = 40
	PriorityVerification      = 10
)

// ChildFileMeta is the per-file metadata a CREATE_DIRECTORY_KB task carries so
// the execution engine never needs to consult the DirectoryNode tree.
type ChildFileMeta struct {
	SourcePath string
	CachePath  string
}

// ChildDirMeta is the per-subdirectory metadata a CREATE_DIRECTORY_KB task
// carries, including the handler-determined KB path of that subdirectory.
type ChildDirMeta struct {
	DirPath string
	KBPath  string
}

// AtomicTask is a single, self-contained unit of work. The execution engine
// never looks up DirectoryNode state at execute time: everything a task
// needs lives in its Metadata.
type AtomicTask struct {
	// TaskID is a unique, path-derived, stable identifier.
	TaskID string
	// TaskType selects which execution branch handles this task.
	TaskType TaskType
	// TargetPath is the file or directory this task concerns.
	TargetPath string
	// Dependencies is the set of task ids that must complete before this
	// task becomes ready.
	Dependencies map[string]struct{}
	// Priority controls dispatch order within a ready batch (descending).
	Priority int
	// EstimatedDuration is a rough wall-clock estimate used only for preview
	// reporting, in seconds.
	EstimatedDuration float64
	// CreatedAt is a monotonically increasing sequence number (not a wall
	// clock) used as the ascending tie-breaker within a ready batch.
	CreatedAt int
	// Metadata carries every input the task needs to execute.
	Metadata TaskMetadata
}

// TaskMetadata is the self-contained payload for one task. Only the fields
// relevant to TaskType are populated.
type TaskMetadata struct {
	// SourceRoot is the root of the source tree being indexed.
	SourceRoot string
	// SourcePath/SourceSize/SourceModTime describe the file a
	// ANALYZE_FILE_LLM or SKIP_FILE_CACHED task concerns.
	SourcePath    string
	SourceSize    int64
	SourceModTime int64 // Unix nanoseconds; avoids pulling time.Time through task equality checks.
	// CachePath is the handler-resolved cache artifact path for a file task.
	CachePath string

	// DirPath/KBPath describe the directory a directory task concerns.
	DirPath string
	KBPath  string
	// ChildFiles/ChildDirs are the inputs a CREATE_DIRECTORY_KB task needs.
	ChildFiles []ChildFileMeta
	ChildDirs  []ChildDirMeta

	// CacheDirs lists every cache directory CREATE_CACHE_STRUCTURE must
	// pre-create.
	CacheDirs []string

	// Reason is the rebuild/deletion reason that produced this task, kept
	// for audit in execution results.
	Reason string
}
