package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeFunc writes the full payload into the pending file.
type writeFunc func(f *os.File, data []byte) error

func writeAll(f *os.File, data []byte) error {
	_, err := f.Write(data)
	return err
}

// replaceFile writes data next to path and renames it over path. On any error
// the previous content of path is untouched and the pending file is removed.
func replaceFile(path string, data []byte, write writeFunc) error {
	if write == nil {
		write = writeAll
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	pending, err := renameio.TempFile(dir, path)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer pending.Cleanup()

	if err := write(pending.File, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
