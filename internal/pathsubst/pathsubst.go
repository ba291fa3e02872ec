// Package pathsubst implements the portable-path placeholder substitution
// required of artifact headers (spec.md §6): absolute paths are encoded with
// placeholders such as {PROJECT_ROOT} and {HOME} so artifacts stay portable
// across checkouts, but the substitution is resolved back to a concrete path
// whenever it is used. Grounded on original_source's
// shared_utilities/handler_path_manager.py and timestamp_manager.py, which
// apply this substitution only to the cache metadata envelope's header
// line, never to the analysis body.
package pathsubst

import (
	"os"
	"strings"
)

const (
	projectRootPlaceholder = "{PROJECT_ROOT}"
	homePlaceholder        = "{HOME}"
)

// Encode rewrites an absolute path into its portable, placeholder form
// relative to projectRoot, falling back to the user's home directory, and
// leaving the path untouched if neither prefix matches.
func Encode(absPath, projectRoot string) string {
	if projectRoot != "" && withinRoot(absPath, projectRoot) {
		return projectRootPlaceholder + strings.TrimPrefix(absPath, projectRoot)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" && withinRoot(absPath, home) {
		return homePlaceholder + strings.TrimPrefix(absPath, home)
	}
	return absPath
}

// withinRoot reports whether absPath is root itself or a path-separator-
// bounded descendant of it, so a sibling directory sharing root as a string
// prefix (e.g. /proj2 against /proj) is never mistaken for a descendant.
func withinRoot(absPath, root string) bool {
	return absPath == root || strings.HasPrefix(absPath, root+string(os.PathSeparator))
}

// Decode resolves a portable, placeholder-bearing path back to a concrete
// absolute path using projectRoot for {PROJECT_ROOT} and the current user's
// home directory for {HOME}.
func Decode(templated, projectRoot string) string {
	if strings.HasPrefix(templated, projectRootPlaceholder) {
		return projectRoot + strings.TrimPrefix(templated, projectRootPlaceholder)
	}
	if strings.HasPrefix(templated, homePlaceholder) {
		home, err := os.UserHomeDir()
		if err != nil {
			home = ""
		}
		return home + strings.TrimPrefix(templated, homePlaceholder)
	}
	return templated
}
