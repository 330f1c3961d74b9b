package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/PeterMedina/stakx/internal/config"
)

// ErrRootNotFound is returned when no site root exists above a directory.
var ErrRootNotFound = errors.New("site root not found")

// FindRoot looks upwards from startDir for a directory holding `_config.yml`
// and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, config.FileName) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrRootNotFound
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
