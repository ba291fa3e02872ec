// Package cache implements the on-disk analysis cache: one text file per
// source file, with a metadata envelope for audit plus the analysis body.
// The cache answers freshness queries and strips the envelope on read, but
// never performs the LLM call itself (spec.md §4.6).
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jcjorel/kb-indexer/internal/handler"
	"github.com/jcjorel/kb-indexer/internal/pathsubst"
)

const (
	metadataStart = "<!-- CACHE_METADATA_START -->"
	metadataEnd   = "<!-- CACHE_METADATA_END -->"
	cacheVersion  = "1.0"

	timestampLayout = "2006-01-02 15:04:05"
)

// Cache answers freshness queries over the on-disk analysis cache and writes
// new cache files atomically. It holds no cached content in memory; every
// call hits the filesystem, which is the source of truth.
type Cache struct {
	// ProjectRoot is used to encode/decode the portable {PROJECT_ROOT}
	// placeholder in the "Source File:" header line.
	ProjectRoot string
}

// New creates a Cache rooted at projectRoot for portable-path substitution.
func New(projectRoot string) *Cache {
	return &Cache{ProjectRoot: projectRoot}
}

// CachePath delegates to the handler that owns filePath's directory. Per
// spec.md §4.7, the handler is always passed explicitly; there is no
// fallback path calculation here.
func (c *Cache) CachePath(h handler.Handler, filePath, sourceRoot string) (string, error) {
	return h.CachePathFor(filePath, sourceRoot)
}

// IsFresh reports whether the cache at cachePath exists and is at least as
// new as sourcePath's modification time. Comparison is direct, without
// tolerance: filesystems lacking sub-second resolution collapse equal
// timestamps to "fresh," which is the deliberately conservative direction
// (spec.md §4.3 Phase 1).
func IsFresh(cachePath, sourcePath string) (bool, string, error) {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("cache file does not exist: %s", cachePath), nil
		}
		return false, "", err
	}
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return false, "", err
	}

	cacheTime := cacheInfo.ModTime()
	sourceTime := sourceInfo.ModTime()
	fresh := !cacheTime.Before(sourceTime)
	reason := fmt.Sprintf(
		"cache mtime %s %s source mtime %s",
		cacheTime.Format(timestampLayout),
		ternary(fresh, ">=", "<"),
		sourceTime.Format(timestampLayout),
	)
	return fresh, reason, nil
}

func ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// ReadStripped reads cachePath and removes the metadata envelope (the
// delimiter lines, everything between them, and one trailing blank line).
// It returns ("", false, nil) if the file does not exist.
func (c *Cache) ReadStripped(cachePath string) (string, bool, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return stripEnvelope(string(data)), true, nil
}

func stripEnvelope(content string) string {
	startIdx := strings.Index(content, metadataStart)
	if startIdx == -1 {
		return content
	}
	endIdx := strings.Index(content, metadataEnd)
	if endIdx == -1 {
		return content
	}
	endIdx += len(metadataEnd)

	rest := content[endIdx:]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")
	// A single trailing blank line separates the envelope from the body.
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	return content[:startIdx] + rest
}

// ReadEnvelopeSourcePath reads cachePath's metadata envelope and decodes the
// "Source File:" line back into an absolute path, giving the decision engine
// an authoritative cross-check against a handler's own reverse-mapped
// hypothetical source path. Returns ok=false if the file or the envelope is
// missing.
func ReadEnvelopeSourcePath(cachePath, projectRoot string) (string, bool, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	portable, ok := parseSourceFileLine(string(data))
	if !ok {
		return "", false, nil
	}
	return pathsubst.Decode(portable, projectRoot), true, nil
}

func parseSourceFileLine(content string) (string, bool) {
	startIdx := strings.Index(content, metadataStart)
	endIdx := strings.Index(content, metadataEnd)
	if startIdx == -1 || endIdx == -1 {
		return "", false
	}
	envelope := content[startIdx:endIdx]

	const marker = "<!-- Source File: "
	lineIdx := strings.Index(envelope, marker)
	if lineIdx == -1 {
		return "", false
	}
	rest := envelope[lineIdx+len(marker):]
	closeIdx := strings.Index(rest, " -->")
	if closeIdx == -1 {
		return "", false
	}
	return rest[:closeIdx], true
}

// Write writes the metadata envelope plus analysis body to cachePath
// atomically (temp file plus rename), after ensuring the parent directory
// exists.
func (c *Cache) Write(cachePath, sourcePath string, analysis string, cachedOn time.Time) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return fmt.Errorf("unable to create cache directory: %w", err)
	}

	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("unable to stat source file: %w", err)
	}

	header := c.envelope(sourcePath, cachedOn, sourceInfo.ModTime())
	content := header + "\n" + analysis

	return writeFileAtomic(cachePath, []byte(content), 0o644)
}

func (c *Cache) envelope(sourcePath string, cachedOn, sourceModTime time.Time) string {
	portable := pathsubst.Encode(sourcePath, c.ProjectRoot)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", metadataStart)
	fmt.Fprintf(&b, "<!-- Source File: %s -->\n", portable)
	fmt.Fprintf(&b, "<!-- Cached On:   %s -->\n", cachedOn.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "<!-- Source Modified: %s -->\n", sourceModTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "<!-- Cache Version: %s -->\n", cacheVersion)
	fmt.Fprintf(&b, "%s\n", metadataEnd)
	return b.String()
}

// WriteKB atomically writes a directory knowledge-base artifact. Unlike
// per-file cache entries, KB bodies carry no metadata envelope: they are
// meant to be embedded directly into an ancestor's own KB prompt.
func WriteKB(kbPath, content string) error {
	if err := os.MkdirAll(filepath.Dir(kbPath), 0o755); err != nil {
		return fmt.Errorf("unable to create knowledge directory: %w", err)
	}
	return writeFileAtomic(kbPath, []byte(content), 0o644)
}

// PrepareStructure pre-creates every directory in dirs. This converts the
// concurrent-mkdir race between workers into a single up-front task,
// executed before any ANALYZE_FILE_LLM or CREATE_DIRECTORY_KB task runs
// (spec.md §4.6, §5).
func PrepareStructure(dirs []string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("unable to create cache directory %q: %w", d, err)
		}
	}
	return nil
}
