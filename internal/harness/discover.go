package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path         string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist (resolved to: %s)", e.Path, e.ResolvedPath)
}

// DiscoverScenarios resolves a scenario path relative to baseDir. A file
// is returned as is; a directory yields every .yaml and .yml file below
// it, sorted.
func DiscoverScenarios(path, baseDir string) ([]string, error) {
	resolved := path
	if !filepath.IsAbs(resolved) && baseDir != "" {
		resolved = filepath.Join(baseDir, resolved)
	}

	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path, ResolvedPath: resolved}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{resolved}, nil
	}

	var paths []string
	err = filepath.WalkDir(resolved, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", resolved, err)
	}
	sort.Strings(paths)
	return paths, nil
}
