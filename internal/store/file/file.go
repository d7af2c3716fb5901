// Package file implements the domain repositories as JSON snapshots on disk,
// one file per collection. Every save writes the full collection to a
// temporary file in the same directory and renames it into place, so a crash
// mid-write leaves the previous snapshot intact.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	marketsFile = "markets.json"
	usersFile   = "users.json"
	tradesFile  = "trades.json"
)

// writeAtomic marshals v as indented JSON and atomically replaces path with
// the result. The temp file lives in the target directory so the final
// rename stays on one filesystem.
func writeAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file: create dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("file: marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("file: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: rename into %s: %w", path, err)
	}
	return nil
}

// readCollection unmarshals the JSON array at path into out. A missing file
// is not an error; out is left empty.
func readCollection(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("file: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("file: parse %s: %w", path, err)
	}
	return nil
}
