// Package pathutil validates user-supplied filesystem paths before
// any file I/O is attempted with them.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath reports a blank path argument.
	ErrEmptyPath = errors.New("path is empty")
	// ErrNullBytes reports embedded NUL bytes, which never appear in
	// a legitimate path.
	ErrNullBytes = errors.New("path contains null bytes")
)

// ValidatePath cleans a path taken from a flag or config value and
// resolves symlinks when the target exists. A path that does not
// exist yet is returned cleaned rather than rejected, so output
// locations like badge files can still be created later.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "\x00") {
		return "", ErrNullBytes
	}

	cleaned := filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		return cleaned, nil
	}
	return resolved, nil
}

// IsPathSafe reports whether a path can be used relative to the
// working directory without escaping it.
func IsPathSafe(path string) bool {
	if path == "" || strings.Contains(path, "\x00") {
		return false
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
