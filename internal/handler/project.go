package handler

import (
	"os"
	"path/filepath"
	"strings"
)

// excludedDirNames is the fixed set of system directories the project
// handler never descends into or indexes: version-control metadata, build
// outputs, dependency caches, and the knowledge output directory itself.
var excludedDirNames = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".venv":        true,
	"__pycache__":  true,
	".cache":       true,
}

// ProjectHandler owns the layout for the project's own tree: a knowledge
// output directory mirroring the project's directory structure.
type ProjectHandler struct {
	// OutputRoot is the root of the knowledge output tree (a
	// `.knowledge`-style directory, conventionally a sibling of the project
	// root or a subdirectory excluded from indexing itself).
	OutputRoot string
}

const projectBaseDirName = "project-base"

// Name implements Handler.
func (h *ProjectHandler) Name() string { return "project" }

// CanHandle implements Handler. The project handler is the universal
// fallback: it claims any path, and must be registered last so more specific
// handlers (vendored repos) get first refusal.
func (h *ProjectHandler) CanHandle(path string) bool {
	return true
}

// ShouldInclude implements Handler.
func (h *ProjectHandler) ShouldInclude(path, sourceRoot string) bool {
	rel, err := filepath.Rel(sourceRoot, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	// Never descend into the knowledge output directory itself.
	if h.OutputRoot != "" {
		if outRel, err := filepath.Rel(sourceRoot, h.OutputRoot); err == nil {
			if rel == outRel || strings.HasPrefix(rel, outRel+string(filepath.Separator)) {
				return false
			}
		}
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if excludedDirNames[part] {
			return false
		}
	}
	return true
}

// KBPathFor implements Handler. The root directory's KB is named root_kb.md;
// every other directory's KB is named <dirname>_kb.md.
func (h *ProjectHandler) KBPathFor(dirPath, sourceRoot string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, dirPath)
	if err != nil {
		return "", err
	}
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	if rel == "." {
		return filepath.Join(base, "root_kb.md"), nil
	}
	name := filepath.Base(dirPath) + "_kb.md"
	return filepath.Join(base, rel, name), nil
}

// CachePathFor implements Handler.
func (h *ProjectHandler) CachePathFor(filePath, sourceRoot string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, filePath)
	if err != nil {
		return "", err
	}
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	return filepath.Join(base, rel+".analysis.md"), nil
}

// EnumerateCleanupCandidates implements Handler: it walks the project's own
// output area for KB and cache artifacts that might be orphans.
func (h *ProjectHandler) EnumerateCleanupCandidates(sourceRoot string) ([]string, error) {
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	var candidates []string
	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return nil // per spec.md §4.3, a scan error is local; skip the entry.
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".analysis.md") || strings.HasSuffix(path, "_kb.md") {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return candidates, nil
}

// EnumerateOutputDirectories implements Handler: it walks the project's own
// output area for every artifact directory, excluding the output area's own
// root, and returns them deepest first.
func (h *ProjectHandler) EnumerateOutputDirectories(sourceRoot string) ([]string, error) {
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	var dirs []string
	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return nil // per spec.md §4.3, a scan error is local; skip the entry.
		}
		if !info.IsDir() || path == base {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	reverseStrings(dirs)
	return dirs, nil
}

// ReverseMapOutputDir implements Handler.
func (h *ProjectHandler) ReverseMapOutputDir(dirPath string) (string, bool) {
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	rel, err := filepath.Rel(base, dirPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

// ReverseMapKB implements Handler.
func (h *ProjectHandler) ReverseMapKB(kbPath string) (string, bool) {
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	rel, err := filepath.Rel(base, kbPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	if rel == "root_kb.md" {
		return ".", true
	}
	if !strings.HasSuffix(rel, "_kb.md") {
		return "", false
	}
	dir := filepath.Dir(rel)
	return dir, true
}

// ReverseMapCache implements Handler.
func (h *ProjectHandler) ReverseMapCache(cachePath string) (string, bool) {
	base := filepath.Join(h.OutputRoot, projectBaseDirName)
	rel, err := filepath.Rel(base, cachePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	const suffix = ".analysis.md"
	if !strings.HasSuffix(rel, suffix) {
		return "", false
	}
	return strings.TrimSuffix(rel, suffix), true
}
