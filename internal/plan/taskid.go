package plan

import (
	"regexp"
	"strings"
)

// idSanitizer collapses every run of non-alphanumeric characters in a path
// into a single underscore, producing a stable, dependency-reference-safe
// task id (spec.md §4.4 "Task id").
var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func sanitizeID(path string) string {
	return strings.Trim(idSanitizer.ReplaceAllString(path, "_"), "_")
}

// Task ids are namespaced by kind so a file and a directory that share a
// path component never collide, and so the four task kinds tied to one path
// (analyze/skip, verify, create/skip-dir, verify-dir) resolve to distinct ids.
func fileTaskID(path string) string       { return "file_" + sanitizeID(path) }
func verifyFileTaskID(path string) string { return "verify_file_" + sanitizeID(path) }
func dirTaskID(path string) string        { return "dir_" + sanitizeID(path) }
func verifyDirTaskID(path string) string  { return "verify_dir_" + sanitizeID(path) }
func deleteTaskID(path string) string     { return "delete_" + sanitizeID(path) }

const createCacheStructureTaskID = "create_cache_structure"
