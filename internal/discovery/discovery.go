// Package discovery recursively walks a source tree, applying handler-
// specific inclusion rules, and yields a DirectoryNode tree with per-file
// metadata and handler-resolved artifact paths. Grounded on the
// filepath.WalkDir-plus-per-entry-error-logging shape used by the pack's
// other_examples Harvx discovery walker (walk errors are logged and
// skipped, never abort the traversal).
package discovery

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jcjorel/kb-indexer/internal/handler"
	"github.com/jcjorel/kb-indexer/internal/types"
)

// Walker performs a single depth-first traversal of a source tree.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a Walker. A nil logger falls back to slog.Default().
func NewWalker(logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{logger: logger.With("component", "discovery")}
}

// Walk traverses sourceRoot, consulting h.ShouldInclude at every entry, and
// returns the root DirectoryNode. Inaccessible entries are logged and
// skipped; they never abort the traversal (spec.md §4.2).
func (w *Walker) Walk(sourceRoot string, h handler.Handler) (*types.DirectoryNode, error) {
	info, err := os.Stat(sourceRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "walk", Path: sourceRoot, Err: os.ErrInvalid}
	}
	return w.walkDir(sourceRoot, sourceRoot, h)
}

func (w *Walker) walkDir(dirPath, sourceRoot string, h handler.Handler) (*types.DirectoryNode, error) {
	node := &types.DirectoryNode{DirPath: dirPath}

	kbPath, err := h.KBPathFor(dirPath, sourceRoot)
	if err != nil {
		w.logger.Error("handler failed to resolve KB path, skipping directory", "path", dirPath, "error", err)
		return node, nil
	}
	node.KBPath = kbPath

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		w.logger.Warn("unable to read directory, skipping", "path", dirPath, "error", err)
		return node, nil
	}

	// Sort for deterministic ordering across runs on the same tree.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childPath := filepath.Join(dirPath, entry.Name())
		if !h.ShouldInclude(childPath, sourceRoot) {
			continue
		}

		if entry.IsDir() {
			child, err := w.walkDir(childPath, sourceRoot, h)
			if err != nil {
				w.logger.Warn("error walking subdirectory, skipping", "path", childPath, "error", err)
				continue
			}
			node.Subdirs = append(node.Subdirs, child)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.logger.Warn("unable to stat file, skipping", "path", childPath, "error", err)
			continue
		}
		node.Files = append(node.Files, types.FileNode{
			FilePath: childPath,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	return node, nil
}
