// Package dotdir manages the .recall/ and ~/.recall directories.
//
// The directory holds config.toml and the last chat session record used by
// "recall chat --resume".
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the recall directory.
	DirName = ".recall"

	// EnvHome names a recall directory that wins over project and home
	// lookups.
	EnvHome = "RECALL_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .recall/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. $RECALL_HOME
//  3. The nearest .recall/ in the working directory or one of its parents,
//     not counting the home directory itself
//  4. Home ~/.recall/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		dir = os.Getenv(EnvHome)
	}
	if dir == "" {
		dir = m.findProjectDir()
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recall directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// findProjectDir walks from the working directory towards the root and
// returns the first .recall/ directory found, or "".
func (m *Manager) findProjectDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	home, _ := os.UserHomeDir()

	for dir := cwd; ; {
		if dir == home {
			return ""
		}
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
