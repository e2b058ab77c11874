// Package scan discovers files in the source directory and classifies them
// for the organization pipeline.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// Walker traverses the filesystem and discovers files.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new walker.
func NewWalker(logger *slog.Logger) *Walker {
	return &Walker{logger: logger}
}

// WalkResult represents a file discovered during walking.
type WalkResult struct {
	Path    string
	RelPath string
	Size    int64
	ModTime int64
}

// Walk traverses a directory recursively and streams discovered files.
// The channel closes when the walk completes or the context is canceled.
func (w *Walker) Walk(ctx context.Context, rootPath string) <-chan WalkResult {
	results := make(chan WalkResult, 100)

	go func() {
		defer close(results)

		err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				w.logger.Error("walk error", "path", path, "error", err)
				// Continue walking despite errors.
				return nil
			}

			// Skip hidden files/directories.
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				w.logger.Error("failed to get file info", "path", path, "error", err)
				return nil
			}

			relPath, err := filepath.Rel(rootPath, path)
			if err != nil {
				w.logger.Error("failed to compute relative path", "path", path, "error", err)
				relPath = path
			}

			result := WalkResult{
				Path:    path,
				RelPath: relPath,
				Size:    info.Size(),
				ModTime: info.ModTime().UnixMilli(),
			}

			select {
			case results <- result:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("walk failed", "root", rootPath, "error", err)
		}
	}()

	return results
}

// WalkFolder walks a single folder non-recursively, descending only into
// disc subdirectories (CD1, Disc 2, ...) so multi-disc rips appear as one
// flat set of files.
func (w *Walker) WalkFolder(ctx context.Context, folderPath string) <-chan WalkResult {
	results := make(chan WalkResult, 100)

	go func() {
		defer close(results)

		entries, err := os.ReadDir(folderPath)
		if err != nil {
			w.logger.Error("failed to read directory", "path", folderPath, "error", err)
			return
		}

		dirsToScan := []string{folderPath}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if IsDiscDir(entry.Name()) {
				dirsToScan = append(dirsToScan, filepath.Join(folderPath, entry.Name()))
			}
		}

		for _, dir := range dirsToScan {
			select {
			case <-ctx.Done():
				return
			default:
			}

			dirEntries, err := os.ReadDir(dir)
			if err != nil {
				w.logger.Error("failed to read directory", "path", dir, "error", err)
				continue
			}

			for _, entry := range dirEntries {
				if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
					continue
				}

				path := filepath.Join(dir, entry.Name())
				info, err := entry.Info()
				if err != nil {
					w.logger.Error("failed to get file info", "path", path, "error", err)
					continue
				}

				// Relative to the book folder, not the disc subfolder.
				relPath, err := filepath.Rel(folderPath, path)
				if err != nil {
					relPath = entry.Name()
				}

				result := WalkResult{
					Path:    path,
					RelPath: relPath,
					Size:    info.Size(),
					ModTime: info.ModTime().UnixMilli(),
				}

				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return results
}

// IsDiscDir checks if a directory name indicates a disc/CD directory.
func IsDiscDir(name string) bool {
	name = strings.ToLower(name)

	patterns := []string{"cd", "disc", "disk"}
	for _, pattern := range patterns {
		if after, ok := strings.CutPrefix(name, pattern); ok {
			rest := strings.TrimSpace(after)
			if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
				return true
			}
		}
	}
	return false
}

// RawFile converts a walk result into a domain file with the given kind.
func (r WalkResult) RawFile(kind domain.FileKind) domain.RawFile {
	return domain.RawFile{
		Path:    r.Path,
		Name:    filepath.Base(r.Path),
		Kind:    kind,
		Size:    r.Size,
		ModTime: time.UnixMilli(r.ModTime),
	}
}
