package handler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProjectHandlerKBPathFor(t *testing.T) {
	t.Parallel()
	h := &ProjectHandler{OutputRoot: "/out"}

	root, err := h.KBPathFor("/p", "/p")
	if err != nil {
		t.Fatalf("KBPathFor root: %v", err)
	}
	if want := filepath.Join("/out", "project-base", "root_kb.md"); root != want {
		t.Errorf("root KB path = %q, want %q", root, want)
	}

	sub, err := h.KBPathFor("/p/sub", "/p")
	if err != nil {
		t.Fatalf("KBPathFor sub: %v", err)
	}
	if want := filepath.Join("/out", "project-base", "sub", "sub_kb.md"); sub != want {
		t.Errorf("sub KB path = %q, want %q", sub, want)
	}
}

func TestProjectHandlerCachePathFor(t *testing.T) {
	t.Parallel()
	h := &ProjectHandler{OutputRoot: "/out"}

	cache, err := h.CachePathFor("/p/sub/b.py", "/p")
	if err != nil {
		t.Fatalf("CachePathFor: %v", err)
	}
	if want := filepath.Join("/out", "project-base", "sub", "b.py.analysis.md"); cache != want {
		t.Errorf("cache path = %q, want %q", cache, want)
	}
}

func TestProjectHandlerShouldIncludeExcludesSystemDirs(t *testing.T) {
	t.Parallel()
	h := &ProjectHandler{OutputRoot: "/p/.knowledge"}

	cases := []struct {
		path string
		want bool
	}{
		{"/p/src/main.go", true},
		{"/p/.git/HEAD", false},
		{"/p/node_modules/pkg/index.js", false},
		{"/p/.knowledge/project-base/root_kb.md", false},
	}
	for _, c := range cases {
		if got := h.ShouldInclude(c.path, "/p"); got != c.want {
			t.Errorf("ShouldInclude(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestProjectHandlerReverseMapRoundTrip(t *testing.T) {
	t.Parallel()
	h := &ProjectHandler{OutputRoot: "/out"}

	cache, _ := h.CachePathFor("/p/sub/b.py", "/p")
	src, ok := h.ReverseMapCache(cache)
	if !ok {
		t.Fatal("ReverseMapCache() ok = false")
	}
	if want := filepath.Join("sub", "b.py"); src != want {
		t.Errorf("ReverseMapCache() = %q, want %q", src, want)
	}

	kb, _ := h.KBPathFor("/p/sub", "/p")
	dir, ok := h.ReverseMapKB(kb)
	if !ok {
		t.Fatal("ReverseMapKB() ok = false")
	}
	if dir != "sub" {
		t.Errorf("ReverseMapKB() = %q, want %q", dir, "sub")
	}
}

func TestProjectHandlerEnumerateOutputDirectoriesDeepestFirst(t *testing.T) {
	t.Parallel()
	out := t.TempDir()
	h := &ProjectHandler{OutputRoot: out}

	base := filepath.Join(out, projectBaseDirName)
	nested := filepath.Join(base, "sub", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	dirs, err := h.EnumerateOutputDirectories("/p")
	if err != nil {
		t.Fatalf("EnumerateOutputDirectories() error: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("dirs = %v, want 2 entries", dirs)
	}
	if dirs[0] != nested {
		t.Errorf("dirs[0] = %q, want deepest directory %q first", dirs[0], nested)
	}
	if dirs[1] != filepath.Join(base, "sub") {
		t.Errorf("dirs[1] = %q, want %q", dirs[1], filepath.Join(base, "sub"))
	}
}

func TestProjectHandlerReverseMapOutputDir(t *testing.T) {
	t.Parallel()
	h := &ProjectHandler{OutputRoot: "/out"}
	base := filepath.Join("/out", projectBaseDirName)

	src, ok := h.ReverseMapOutputDir(filepath.Join(base, "sub", "deep"))
	if !ok {
		t.Fatal("ReverseMapOutputDir() ok = false")
	}
	if want := filepath.Join("sub", "deep"); src != want {
		t.Errorf("ReverseMapOutputDir() = %q, want %q", src, want)
	}

	if _, ok := h.ReverseMapOutputDir(base); ok {
		t.Error("ReverseMapOutputDir() on the output area's own root should return ok = false")
	}
}

// TestVendoredHandlerIsolation is the pathological test case from spec.md
// §4.7: a file living under a vendored repo must never resolve to the
// project handler's layout.
func TestVendoredHandlerIsolation(t *testing.T) {
	t.Parallel()
	out := "/p/.knowledge"
	vendored := &VendoredRepoHandler{OutputRoot: out}
	project := &ProjectHandler{OutputRoot: out}

	filePath := filepath.Join(out, "git-clones", "foo", "lib", "x.rs")

	if !vendored.CanHandle(filePath) {
		t.Fatal("vendored handler should claim files under git-clones/<repo>")
	}

	cache, err := vendored.CachePathFor(filePath, "/p")
	if err != nil {
		t.Fatalf("CachePathFor: %v", err)
	}
	wantPrefix := filepath.Join(out, "git-clones", "foo.kb")
	if !hasPrefix(cache, wantPrefix) {
		t.Errorf("vendored cache path = %q, want prefix %q", cache, wantPrefix)
	}
	badPrefix := filepath.Join(out, "project-base")
	if hasPrefix(cache, badPrefix) {
		t.Errorf("vendored cache path leaked into project-base: %q", cache)
	}

	// The project handler must never be asked to resolve this path in
	// practice (the registry resolves vendored first), but even if it were,
	// its own ShouldInclude should not be relied upon for routing.
	_ = project
}

func TestVendoredHandlerKBPath(t *testing.T) {
	t.Parallel()
	out := "/p/.knowledge"
	h := &VendoredRepoHandler{OutputRoot: out}

	root, err := h.KBPathFor(filepath.Join(out, "git-clones", "foo"), "/p")
	if err != nil {
		t.Fatalf("KBPathFor repo root: %v", err)
	}
	want := filepath.Join(out, "git-clones", "foo.kb", "root_kb.md")
	if root != want {
		t.Errorf("repo root KB path = %q, want %q", root, want)
	}
}

func TestVendoredHandlerEnumerateOutputDirectoriesDeepestFirst(t *testing.T) {
	t.Parallel()
	out := t.TempDir()
	h := &VendoredRepoHandler{OutputRoot: out}

	kbDir := filepath.Join(out, gitClonesDirName, "foo.kb")
	nested := filepath.Join(kbDir, "lib")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	dirs, err := h.EnumerateOutputDirectories("/repos")
	if err != nil {
		t.Fatalf("EnumerateOutputDirectories() error: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("dirs = %v, want 2 entries", dirs)
	}
	if dirs[0] != nested {
		t.Errorf("dirs[0] = %q, want deepest directory %q first", dirs[0], nested)
	}
	if dirs[1] != kbDir {
		t.Errorf("dirs[1] = %q, want %q", dirs[1], kbDir)
	}
}

func TestVendoredHandlerReverseMapOutputDir(t *testing.T) {
	t.Parallel()
	out := "/p/.knowledge"
	h := &VendoredRepoHandler{OutputRoot: out}

	src, ok := h.ReverseMapOutputDir(filepath.Join(out, gitClonesDirName, "foo.kb", "lib"))
	if !ok {
		t.Fatal("ReverseMapOutputDir() ok = false")
	}
	if want := filepath.Join(out, gitClonesDirName, "foo", "lib"); src != want {
		t.Errorf("ReverseMapOutputDir() = %q, want %q", src, want)
	}

	root, ok := h.ReverseMapOutputDir(filepath.Join(out, gitClonesDirName, "foo.kb"))
	if !ok {
		t.Fatal("ReverseMapOutputDir() on the repo's own .kb root: ok = false")
	}
	if want := filepath.Join(out, gitClonesDirName, "foo"); root != want {
		t.Errorf("ReverseMapOutputDir() = %q, want %q", root, want)
	}
}

func TestRegistryResolvesVendoredBeforeProject(t *testing.T) {
	t.Parallel()
	out := "/p/.knowledge"
	reg := NewRegistry(nil, &VendoredRepoHandler{OutputRoot: out}, &ProjectHandler{OutputRoot: out})

	h, ok := reg.Resolve(filepath.Join(out, "git-clones", "foo", "README.md"))
	if !ok {
		t.Fatal("Resolve() ok = false")
	}
	if h.Name() != "vendored-repo" {
		t.Errorf("Resolve() handler = %q, want vendored-repo", h.Name())
	}

	h, ok = reg.Resolve("/p/src/main.go")
	if !ok {
		t.Fatal("Resolve() ok = false")
	}
	if h.Name() != "project" {
		t.Errorf("Resolve() handler = %q, want project", h.Name())
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
