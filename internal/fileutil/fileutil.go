// Package fileutil holds small filesystem helpers shared by the
// components that lay out a village's on-disk state.
package fileutil

import (
	"encoding/json"
	"os"
)

// EnsureDir creates a directory and all parent directories with 0755 permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// EnsureDirs calls EnsureDir for every path, stopping at the first error.
func EnsureDirs(paths ...string) error {
	for _, p := range paths {
		if err := EnsureDir(p); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON marshals v as indented JSON and writes it to path.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
