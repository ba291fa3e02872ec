// Package handler implements the Handler Registry: a closed, statically
// known set of layout strategies, one per class of source tree (the project
// itself, a vendored repo mirrored under the output root). All path
// calculations for a given tree are delegated to the handler that owns it,
// never recomputed by callers. See spec.md §4.1 and §4.7.
package handler

// Handler owns the path layout for one class of source tree. Implementations
// must be safe for concurrent use.
type Handler interface {
	// Name identifies the handler for logging and task metadata.
	Name() string

	// CanHandle reports whether this handler owns path. The registry selects
	// the first handler whose CanHandle returns true.
	CanHandle(path string) bool

	// KBPathFor returns where dirPath's knowledge-base artifact is written.
	KBPathFor(dirPath, sourceRoot string) (string, error)

	// CachePathFor returns where filePath's analysis cache artifact is
	// written.
	CachePathFor(filePath, sourceRoot string) (string, error)

	// ShouldInclude reports whether path should be part of discovery/decision
	// at all (the exclusion filter).
	ShouldInclude(path, sourceRoot string) bool

	// EnumerateCleanupCandidates scans this handler's own output area and
	// yields every artifact path that might be an orphan.
	EnumerateCleanupCandidates(sourceRoot string) ([]string, error)

	// ReverseMapKB maps a KB artifact path back to the hypothetical source
	// directory it was generated from, for orphan validation. Returns ok=false
	// if kbPath is not a path this handler could have produced.
	ReverseMapKB(kbPath string) (sourcePath string, ok bool)

	// ReverseMapCache maps a cache artifact path back to the hypothetical
	// source file it was generated from, for orphan validation.
	ReverseMapCache(cachePath string) (sourcePath string, ok bool)

	// EnumerateOutputDirectories scans this handler's own output area and
	// yields every artifact directory, deepest first, so a caller can test
	// each for emptiness before its parent.
	EnumerateOutputDirectories(sourceRoot string) ([]string, error)

	// ReverseMapOutputDir maps an output-area directory back to the
	// hypothetical source directory it mirrors, for orphan validation.
	ReverseMapOutputDir(dirPath string) (sourcePath string, ok bool)
}

// reverseStrings reverses s in place, so a pre-order directory walk (parents
// before children) becomes deepest-first (children before parents).
func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
