package ciutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// GoModFile marks the project root.
const GoModFile = "go.mod"

// maxTraversal bounds the upward search.
const maxTraversal = 10

var (
	ErrProjectRootNotFound = errors.New("unable to find project root")
	ErrInvalidProjectRoot  = errors.New("invalid project root: no go.mod file found")
)

// FindProjectRoot returns the absolute path of the repository root. It checks,
// in order, TASKFLOW_PROJECT_ROOT, the CI provider's workspace, and finally
// walks up from the working directory looking for go.mod.
func FindProjectRoot(logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, candidate := range []struct{ source, dir string }{
		{EnvProjectRoot, os.Getenv(EnvProjectRoot)},
		{"ci_workspace", ciWorkspace()},
	} {
		if candidate.dir == "" {
			continue
		}
		if !isValidProjectRoot(candidate.dir) {
			return "", fmt.Errorf("%w at %s", ErrInvalidProjectRoot, candidate.dir)
		}
		logger.Debug("using configured project root",
			"source", candidate.source,
			"project_root", candidate.dir)
		return filepath.Abs(candidate.dir)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return findProjectRootFrom(wd)
}

func findProjectRootFrom(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for i := 0; i < maxTraversal; i++ {
		if isValidProjectRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrProjectRootNotFound
}

func isValidProjectRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, GoModFile))
	return err == nil && !info.IsDir()
}
