package handler

import (
	"os"
	"path/filepath"
	"strings"
)

// vendoredExcludedDirNames is the fixed exclusion set for vendored repos:
// version-control metadata, build artifacts, and language caches. Narrower
// than the project handler's set because a vendored repo is read-only and
// its own build tooling is out of scope entirely.
var vendoredExcludedDirNames = map[string]bool{
	".git":        true,
	"node_modules": true,
	"dist":        true,
	"build":       true,
	"target":      true,
	"__pycache__": true,
}

const gitClonesDirName = "git-clones"

// VendoredRepoHandler owns the layout for third-party repositories mirrored
// read-only under <output_root>/git-clones/<repo>. Artifacts are written to
// a sibling directory <repo>.kb/, never inside the repo itself.
type VendoredRepoHandler struct {
	// OutputRoot is the root of the knowledge output tree.
	OutputRoot string
}

// Name implements Handler.
func (h *VendoredRepoHandler) Name() string { return "vendored-repo" }

func (h *VendoredRepoHandler) reposRoot() string {
	return filepath.Join(h.OutputRoot, gitClonesDirName)
}

// repoAndRel returns the repo name and the path relative to that repo's root
// for any path under <output_root>/git-clones/<repo>/..., or ok=false.
func (h *VendoredRepoHandler) repoAndRel(path string) (repo, rel string, ok bool) {
	root := h.reposRoot()
	r, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(r, "..") || r == "." {
		return "", "", false
	}
	parts := strings.SplitN(filepath.ToSlash(r), "/", 2)
	repo = parts[0]
	if strings.HasSuffix(repo, ".kb") {
		return "", "", false
	}
	if len(parts) == 1 {
		return repo, ".", true
	}
	return repo, filepath.FromSlash(parts[1]), true
}

// CanHandle implements Handler.
func (h *VendoredRepoHandler) CanHandle(path string) bool {
	_, _, ok := h.repoAndRel(path)
	return ok
}

// ShouldInclude implements Handler.
func (h *VendoredRepoHandler) ShouldInclude(path, sourceRoot string) bool {
	_, rel, ok := h.repoAndRel(path)
	if !ok {
		return false
	}
	if rel == "." {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if vendoredExcludedDirNames[part] {
			return false
		}
	}
	return true
}

func (h *VendoredRepoHandler) kbDirFor(repo string) string {
	return filepath.Join(h.reposRoot(), repo+".kb")
}

// KBPathFor implements Handler.
func (h *VendoredRepoHandler) KBPathFor(dirPath, sourceRoot string) (string, error) {
	repo, rel, ok := h.repoAndRel(dirPath)
	if !ok {
		return "", errHandlerFailure("vendored-repo", dirPath, errNotVendored)
	}
	base := h.kbDirFor(repo)
	if rel == "." {
		return filepath.Join(base, "root_kb.md"), nil
	}
	name := filepath.Base(dirPath) + "_kb.md"
	return filepath.Join(base, rel, name), nil
}

// CachePathFor implements Handler.
func (h *VendoredRepoHandler) CachePathFor(filePath, sourceRoot string) (string, error) {
	repo, rel, ok := h.repoAndRel(filePath)
	if !ok {
		return "", errHandlerFailure("vendored-repo", filePath, errNotVendored)
	}
	base := h.kbDirFor(repo)
	return filepath.Join(base, rel+".analysis.md"), nil
}

// EnumerateCleanupCandidates implements Handler: each repo's own <repo>.kb/
// sibling directory is scanned.
func (h *VendoredRepoHandler) EnumerateCleanupCandidates(sourceRoot string) ([]string, error) {
	root := h.reposRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var candidates []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".kb") {
			continue
		}
		kbDir := filepath.Join(root, e.Name())
		werr := filepath.Walk(kbDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				return nil
			}
			if strings.HasSuffix(path, ".analysis.md") || strings.HasSuffix(path, "_kb.md") {
				candidates = append(candidates, path)
			}
			return nil
		})
		if werr != nil {
			continue
		}
	}
	return candidates, nil
}

// EnumerateOutputDirectories implements Handler: each repo's own <repo>.kb/
// sibling directory, including itself, is collected deepest first.
func (h *VendoredRepoHandler) EnumerateOutputDirectories(sourceRoot string) ([]string, error) {
	root := h.reposRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".kb") {
			continue
		}
		kbDir := filepath.Join(root, e.Name())
		werr := filepath.Walk(kbDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if !info.IsDir() {
				return nil
			}
			dirs = append(dirs, path)
			return nil
		})
		if werr != nil {
			continue
		}
	}
	reverseStrings(dirs)
	return dirs, nil
}

// ReverseMapOutputDir implements Handler.
func (h *VendoredRepoHandler) ReverseMapOutputDir(dirPath string) (string, bool) {
	repo, rel, ok := h.reverseRepoAndRelDir(dirPath, ".kb")
	if !ok {
		return "", false
	}
	if rel == "" {
		return filepath.Join(h.reposRoot(), repo), true
	}
	return filepath.Join(h.reposRoot(), repo, rel), true
}

// reverseRepoAndRelDir is reverseRepoAndRel's directory-aware counterpart: it
// also accepts the artifact directory's own root (rel == ""), representing
// the entire repo's output area.
func (h *VendoredRepoHandler) reverseRepoAndRelDir(path, suffix string) (repo, rel string, ok bool) {
	root := h.reposRoot()
	r, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(r, "..") {
		return "", "", false
	}
	parts := strings.SplitN(filepath.ToSlash(r), "/", 2)
	dirName := parts[0]
	if !strings.HasSuffix(dirName, suffix) {
		return "", "", false
	}
	repo = strings.TrimSuffix(dirName, suffix)
	if len(parts) == 1 {
		return repo, "", true
	}
	return repo, filepath.FromSlash(parts[1]), true
}

// ReverseMapKB implements Handler.
func (h *VendoredRepoHandler) ReverseMapKB(kbPath string) (string, bool) {
	repo, rel, ok := h.reverseRepoAndRel(kbPath, ".kb")
	if !ok {
		return "", false
	}
	if rel == "root_kb.md" {
		return filepath.Join(h.reposRoot(), repo), true
	}
	if !strings.HasSuffix(rel, "_kb.md") {
		return "", false
	}
	return filepath.Join(h.reposRoot(), repo, filepath.Dir(rel)), true
}

// ReverseMapCache implements Handler.
func (h *VendoredRepoHandler) ReverseMapCache(cachePath string) (string, bool) {
	repo, rel, ok := h.reverseRepoAndRel(cachePath, ".kb")
	if !ok {
		return "", false
	}
	const suffix = ".analysis.md"
	if !strings.HasSuffix(rel, suffix) {
		return "", false
	}
	return filepath.Join(h.reposRoot(), repo, strings.TrimSuffix(rel, suffix)), true
}

// reverseRepoAndRel splits an artifact path under git-clones/<repo><suffix>/...
// into the bare repo name and the path relative to that artifact directory.
func (h *VendoredRepoHandler) reverseRepoAndRel(path, suffix string) (repo, rel string, ok bool) {
	root := h.reposRoot()
	r, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(r, "..") {
		return "", "", false
	}
	parts := strings.SplitN(filepath.ToSlash(r), "/", 2)
	dirName := parts[0]
	if !strings.HasSuffix(dirName, suffix) {
		return "", "", false
	}
	repo = strings.TrimSuffix(dirName, suffix)
	if len(parts) == 1 {
		return repo, "", false
	}
	return repo, filepath.FromSlash(parts[1]), true
}
