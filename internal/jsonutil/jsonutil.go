// Package jsonutil provides the read/write-then-rename JSON helpers used
// throughout modelstation for its on-disk manifests and mapping files.
// Writes go to a ".tmp" sibling first, then os.Rename makes the update
// atomic from a reader's perspective.
package jsonutil

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ReadFile decodes the JSON document at path into v. Returns os.IsNotExist
// errors unchanged so callers can distinguish "absent" from "malformed".
func ReadFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// WriteFile atomically writes v as indented JSON to path, creating parent
// directories as needed.
func WriteFile(path string, v any, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
