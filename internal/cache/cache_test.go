package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteThenReadStrippedHasNoEnvelope(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	source := filepath.Join(dir, "a.py")
	if err := os.WriteFile(source, []byte("print('a')"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	cachePath := filepath.Join(dir, "out", "a.py.analysis.md")

	c := New(dir)
	if err := c.Write(cachePath, source, "analysis body", time.Now()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	stripped, ok, err := c.ReadStripped(cachePath)
	if err != nil {
		t.Fatalf("ReadStripped() error: %v", err)
	}
	if !ok {
		t.Fatal("ReadStripped() ok = false, want true")
	}
	if strings.Contains(stripped, metadataStart) || strings.Contains(stripped, metadataEnd) {
		t.Errorf("stripped content still contains envelope delimiters: %q", stripped)
	}
	if strings.TrimSpace(stripped) != "analysis body" {
		t.Errorf("stripped content = %q, want %q", stripped, "analysis body")
	}
}

func TestReadEnvelopeSourcePathRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	source := filepath.Join(dir, "sub", "a.py")
	mustWriteAt(t, source, time.Now())
	cachePath := filepath.Join(dir, "out", "sub", "a.py.analysis.md")

	c := New(dir)
	if err := c.Write(cachePath, source, "analysis body", time.Now()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, ok, err := ReadEnvelopeSourcePath(cachePath, dir)
	if err != nil {
		t.Fatalf("ReadEnvelopeSourcePath() error: %v", err)
	}
	if !ok {
		t.Fatal("ReadEnvelopeSourcePath() ok = false, want true")
	}
	if got != source {
		t.Errorf("ReadEnvelopeSourcePath() = %q, want %q", got, source)
	}
}

func TestReadEnvelopeSourcePathMissingFile(t *testing.T) {
	t.Parallel()
	_, ok, err := ReadEnvelopeSourcePath("/does/not/exist.md", "/proj")
	if err != nil {
		t.Fatalf("ReadEnvelopeSourcePath() error: %v", err)
	}
	if ok {
		t.Error("ReadEnvelopeSourcePath() ok = true for missing file, want false")
	}
}

func TestReadEnvelopeSourcePathNoEnvelope(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.md")
	if err := os.WriteFile(path, []byte("no envelope here"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, ok, err := ReadEnvelopeSourcePath(path, "/proj")
	if err != nil {
		t.Fatalf("ReadEnvelopeSourcePath() error: %v", err)
	}
	if ok {
		t.Error("ReadEnvelopeSourcePath() ok = true for envelope-less file, want false")
	}
}

func TestReadStrippedMissingFile(t *testing.T) {
	t.Parallel()
	c := New("/proj")
	_, ok, err := c.ReadStripped("/does/not/exist.md")
	if err != nil {
		t.Fatalf("ReadStripped() error: %v", err)
	}
	if ok {
		t.Error("ReadStripped() ok = true for missing file, want false")
	}
}

func TestIsFreshCacheNewerThanSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	source := filepath.Join(dir, "a.py")
	cachePath := filepath.Join(dir, "a.py.analysis.md")

	mustWriteAt(t, source, time.Now().Add(-time.Hour))
	mustWriteAt(t, cachePath, time.Now())

	fresh, reason, err := IsFresh(cachePath, source)
	if err != nil {
		t.Fatalf("IsFresh() error: %v", err)
	}
	if !fresh {
		t.Errorf("IsFresh() = false, want true: %s", reason)
	}
}

func TestIsFreshSourceNewerThanCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	source := filepath.Join(dir, "a.py")
	cachePath := filepath.Join(dir, "a.py.analysis.md")

	mustWriteAt(t, cachePath, time.Now().Add(-time.Hour))
	mustWriteAt(t, source, time.Now())

	fresh, _, err := IsFresh(cachePath, source)
	if err != nil {
		t.Fatalf("IsFresh() error: %v", err)
	}
	if fresh {
		t.Error("IsFresh() = true, want false (source newer)")
	}
}

func TestIsFreshMissingCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	source := filepath.Join(dir, "a.py")
	mustWriteAt(t, source, time.Now())

	fresh, _, err := IsFresh(filepath.Join(dir, "missing.analysis.md"), source)
	if err != nil {
		t.Fatalf("IsFresh() error: %v", err)
	}
	if fresh {
		t.Error("IsFresh() = true for missing cache, want false")
	}
}

func TestWriteCreatesParentDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	source := filepath.Join(dir, "a.py")
	mustWriteAt(t, source, time.Now())
	cachePath := filepath.Join(dir, "nested", "deep", "a.py.analysis.md")

	c := New(dir)
	if err := c.Write(cachePath, source, "body", time.Now()); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("cache file not created: %v", err)
	}
}

func TestPrepareStructure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dirs := []string{
		filepath.Join(dir, "a", "b"),
		filepath.Join(dir, "c"),
	}
	if err := PrepareStructure(dirs); err != nil {
		t.Fatalf("PrepareStructure() error: %v", err)
	}
	for _, d := range dirs {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %q not created", d)
		}
	}
}

func mustWriteAt(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %q: %v", path, err)
	}
}
