package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTraversal is returned for request paths that climb above the root.
	ErrTraversal = errors.New("path traversal attempt detected")
	// ErrInvalidPath is returned for request paths with NUL bytes or backslashes.
	ErrInvalidPath = errors.New("invalid path")
)

// resolvePath maps a decoded URL path onto a slash-separated path rooted at
// "/". Dot segments are applied in order, and a ".." that would leave the root
// is rejected rather than clamped.
func resolvePath(urlPath string) (string, error) {
	if strings.ContainsAny(urlPath, "\x00\\") {
		return "", ErrInvalidPath
	}

	parts := make([]string, 0, strings.Count(urlPath, "/"))
	for _, seg := range strings.Split(urlPath, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(parts) == 0 {
				return "", ErrTraversal
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, seg)
		}
	}
	return "/" + strings.Join(parts, "/"), nil
}

// withinRoot reports whether name, after following symlinks, is still inside
// realRoot. realRoot must already be free of symlinks.
func withinRoot(realRoot, name string) (bool, error) {
	target, err := filepath.EvalSymlinks(filepath.Join(realRoot, filepath.FromSlash(name)))
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(realRoot, target)
	if err != nil {
		return false, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return true, nil
}

// prepareRoot checks that dir is an existing directory, makes it the working
// directory and returns its absolute path.
func prepareRoot(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root directory %s is not a directory", dir)
	}

	absRoot, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid root directory: %w", err)
	}
	if err := os.Chdir(absRoot); err != nil {
		return "", fmt.Errorf("change to root directory: %w", err)
	}
	return absRoot, nil
}
