// Package staging provides crash-safe movement of book files into the
// library. Files are first moved into a per-unit staging directory inside
// the library root, worked on there, and only renamed into their final
// folder once everything succeeded. A crash mid-unit leaves the files
// intact in the staging directory instead of half-scattered.
package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/listenupapp/listenup-organizer/internal/errors"
)

// stagingPrefix marks staging directories so library scanners and the
// cleanup sweep can recognize them.
const stagingPrefix = ".staging-"

// Manager creates and commits staging directories under the library root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager creates a staging manager rooted at the library directory.
func NewManager(libraryRoot string, logger *slog.Logger) *Manager {
	return &Manager{root: libraryRoot, logger: logger}
}

// Stage is one in-progress unit. It is not safe for concurrent use; the
// pipeline gives each unit its own stage.
type Stage struct {
	m        *Manager
	dir      string
	finished bool
}

// Begin creates the staging directory for a unit. The directory lives on
// the library filesystem so the final commit is a same-device rename.
func (m *Manager) Begin(unitID string) (*Stage, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeFilesystem, "creating library root")
	}
	dir := filepath.Join(m.root, stagingPrefix+unitID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeFilesystem, "creating staging dir %s", dir)
	}
	m.logger.Debug("staging begun", "unit", unitID, "dir", dir)
	return &Stage{m: m, dir: dir}, nil
}

// Dir returns the staging directory path.
func (s *Stage) Dir() string { return s.dir }

// Add moves a source file into the stage and returns its staged path.
// Cross-device sources are copied durably before the original is removed.
func (s *Stage) Add(srcPath string) (string, error) {
	dst := filepath.Join(s.dir, filepath.Base(srcPath))
	if err := moveFile(srcPath, dst); err != nil {
		return "", errors.Wrapf(err, errors.CodeFilesystem, "staging %s", srcPath)
	}
	return dst, nil
}

// WriteFile atomically writes an auxiliary file (cover, sidecar, marker)
// into the stage.
func (s *Stage) WriteFile(name string, data []byte) error {
	if err := writeFileAtomic(s.dir, name, data); err != nil {
		return errors.Wrapf(err, errors.CodeFilesystem, "writing %s to stage", name)
	}
	return nil
}

// Commit renames the stage onto finalDir. If finalDir already exists the
// stage is committed under a numbered variant ("Title (2)", "Title (3)", ...)
// rather than merged; existing library content is never touched. Returns
// the directory actually committed to.
func (s *Stage) Commit(finalDir string) (string, error) {
	if s.finished {
		return "", errors.Conflict("stage already finished")
	}
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return "", errors.Wrapf(err, errors.CodeFilesystem, "creating parent of %s", finalDir)
	}

	target := finalDir
	attempt := 1
	for {
		if _, err := os.Lstat(target); err == nil {
			attempt++
			if attempt > 20 {
				return "", errors.Conflictf("no free variant of %s after %d tries", finalDir, attempt)
			}
			target = fmt.Sprintf("%s (%d)", finalDir, attempt)
			continue
		} else if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, errors.CodeFilesystem, "checking %s", target)
		}

		err := renameFunc(s.dir, target)
		if err == nil {
			break
		}
		if os.IsExist(err) {
			// Raced with something creating the target; the re-stat above
			// advances to the next variant without skipping one.
			continue
		}
		return "", errors.Wrapf(err, errors.CodeFilesystem, "committing to %s", target)
	}

	s.finished = true
	syncDirBestEffort(filepath.Dir(target))
	if target != finalDir {
		s.m.logger.Warn("destination existed, committed under variant",
			"wanted", finalDir, "committed", target)
	}
	return target, nil
}

// Abandon leaves the staged files where they are and returns the staging
// directory path so the operator can recover them by hand. An empty stage
// is removed instead.
func (s *Stage) Abandon() string {
	if s.finished {
		return ""
	}
	s.finished = true

	entries, err := os.ReadDir(s.dir)
	if err == nil && len(entries) == 0 {
		os.Remove(s.dir)
		return ""
	}
	s.m.logger.Warn("stage abandoned, files left for manual recovery", "dir", s.dir)
	return s.dir
}

// Leftovers lists staging directories under the library root left behind by
// earlier crashed or abandoned runs.
func (m *Manager) Leftovers() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodeFilesystem, "reading library root")
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) > len(stagingPrefix) && e.Name()[:len(stagingPrefix)] == stagingPrefix {
			dirs = append(dirs, filepath.Join(m.root, e.Name()))
		}
	}
	return dirs, nil
}
