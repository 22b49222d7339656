package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"mgit/internal/errors"
)

// DefaultHead is the branch pointer written by Initialize.
const DefaultHead = "ref: refs/heads/main\n"

// Initialize creates the store skeleton under root. It is idempotent and
// reports whether anything was created.
func Initialize(root string) (bool, error) {
	info, err := os.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return false, errors.IOError("store root exists but is not a directory", root, nil)
	case err == nil:
		if _, err := os.Stat(filepath.Join(root, objectsDir)); err == nil {
			return false, nil
		}
	case !os.IsNotExist(err):
		return false, errors.IOError("checking store root", root, err)
	}

	dirs := []string{
		filepath.Join(root, objectsDir, "info"),
		filepath.Join(root, objectsDir, "pack"),
		filepath.Join(root, "refs", "heads"),
		filepath.Join(root, "refs", "tags"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, errors.IOError(fmt.Sprintf("creating directory %s", dir), dir, err)
		}
	}

	head := filepath.Join(root, "HEAD")
	if _, err := os.Stat(head); os.IsNotExist(err) {
		if err := os.WriteFile(head, []byte(DefaultHead), 0644); err != nil {
			return false, errors.IOError("writing HEAD", head, err)
		}
	}
	return true, nil
}

// FindRoot searches upward from startDir for a directory containing name.
func FindRoot(startDir, name string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotFound("store root not found", name)
}
