package decision

import "path/filepath"

// isAbs reports whether p is an absolute path.
func isAbs(p string) bool {
	return filepath.IsAbs(p)
}

// joinSourceRoot resolves a handler's reverse-mapped relative source path
// (e.g. "." for the root, "sub/file.go" for a nested file) against
// sourceRoot. Handlers that already return absolute paths (the vendored
// repo handler) bypass this entirely.
func joinSourceRoot(sourceRoot, rel string) string {
	if rel == "." {
		return sourceRoot
	}
	return filepath.Join(sourceRoot, rel)
}
