// Package security guards the names gem-align turns into file paths.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath stays inside safeDir once
// both are cleaned. The check is lexical: output may be written to an
// in-memory filesystem, so nothing is resolved on disk.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	if filePath == "" {
		return fmt.Errorf("empty path")
	}
	cleanPath := filepath.Clean(filePath)
	cleanDir := filepath.Clean(safeDir)

	if filepath.IsAbs(cleanPath) != filepath.IsAbs(cleanDir) {
		return fmt.Errorf("path %s cannot be compared with %s", filePath, safeDir)
	}

	relPath, err := filepath.Rel(cleanDir, cleanPath)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", safeDir, err)
	}
	if relPath == "." {
		return fmt.Errorf("path %s names the directory itself", filePath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidateFileStem checks a run name used to build the plane file names.
// The stem must be a single path element.
func ValidateFileStem(stem string) error {
	switch {
	case stem == "":
		return fmt.Errorf("empty file stem")
	case stem == "." || stem == "..":
		return fmt.Errorf("file stem %q is not a name", stem)
	case strings.ContainsAny(stem, `/\`):
		return fmt.Errorf("file stem %q contains a path separator", stem)
	case strings.ContainsRune(stem, 0):
		return fmt.Errorf("file stem contains a NUL byte")
	}
	return nil
}
