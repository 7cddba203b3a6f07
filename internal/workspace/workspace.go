// Package workspace resolves the directories a texbuilder project uses.
//
// The output directory is persistent (a fixed path under the project root
// that survives between builds and is only emptied by clean). Release
// staging uses an ephemeral timestamped directory that is removed once its
// files have been moved into the dist directory.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// Manager handles workspace operations (both temporary and persistent)
type Manager struct {
	baseDir    string
	dir        string
	persistent bool // If true, use baseDir/subdir directly without timestamps
}

// NewStagingManager creates a manager with an ephemeral timestamped directory.
func NewStagingManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewPersistentManager creates a manager for a fixed directory (baseDir/subdirName)
// that is not removed by Cleanup.
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if subdirName == "" {
		subdirName = "build"
	}
	dir := subdirName
	if !filepath.IsAbs(subdirName) {
		dir = filepath.Join(baseDir, subdirName)
	}
	return &Manager{
		baseDir:    baseDir,
		dir:        dir,
		persistent: true,
	}
}

// Create ensures the directory exists. Ephemeral managers get a fresh
// timestamped directory on every call.
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", m.dir, err)
		}
		slog.Debug("Using output directory", logfields.Path(m.dir))
		return nil
	}

	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging base: %w", err)
	}
	pattern := fmt.Sprintf("texbuilder-%s-*", time.Now().Format("20060102-150405"))
	dir, err := os.MkdirTemp(m.baseDir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	m.dir = dir
	slog.Debug("Created staging directory", logfields.Path(dir))
	return nil
}

// GetPath returns the managed directory.
func (m *Manager) GetPath() string {
	return m.dir
}

// Cleanup removes an ephemeral directory. Persistent directories are kept.
func (m *Manager) Cleanup() error {
	if m.dir == "" || m.persistent {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to cleanup staging directory: %w", err)
	}
	slog.Debug("Removed staging directory", logfields.Path(m.dir))
	m.dir = ""
	return nil
}

// CreateSubdir creates a subdirectory within the managed directory
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}

	subdir := filepath.Join(m.dir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	return subdir, nil
}
