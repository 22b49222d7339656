package repo

import (
	"path/filepath"
	"strings"
)

// ShouldIgnore reports whether a path found while walking a directory is
// skipped. Explicitly named files are never passed through it.
func ShouldIgnore(path string) bool {
	if path == "" {
		return true
	}

	// Check each path component
	for _, comp := range strings.Split(filepath.ToSlash(path), "/") {
		if comp == "" || comp == "." {
			continue
		}

		// Ignore hidden files and directories
		if strings.HasPrefix(comp, ".") {
			return true
		}

		switch comp {
		case "node_modules", "vendor":
			return true
		}
	}

	return false
}
