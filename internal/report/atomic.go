// Package report persists machine-readable gate results for CI artifact
// consumers. Files are written atomically so a reader never observes a
// partially written report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/renderlab/rendergate/internal/preflight"
)

// WriteFile writes the structured result to path as indented JSON.
func WriteFile(path string, res *preflight.Result) error {
	content, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return atomicWrite(path, append(content, '\n'))
}

// atomicWrite lands content at path via a same-directory temp file and a
// rename, so a crash mid-write leaves either the old file or the new one,
// never a truncated report.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rendergate-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
