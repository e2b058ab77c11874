package scan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
)

// Folder is a pre-formed book folder found at the top of the source
// directory, with its member files already collected.
type Folder struct {
	Name  string
	Path  string
	Files []domain.RawFile
}

// Snapshot is one pass over the source directory: loose files at the top
// level plus pre-formed folders. Ignored-kind files are excluded.
type Snapshot struct {
	Loose   []domain.RawFile
	Folders []Folder
}

// Empty reports whether the snapshot found nothing usable.
func (s *Snapshot) Empty() bool {
	return len(s.Loose) == 0 && len(s.Folders) == 0
}

// Scanner collects a snapshot of the source directory.
type Scanner struct {
	walker     *Walker
	classifier *Classifier
	logger     *slog.Logger
}

// NewScanner creates a scanner.
func NewScanner(classifier *Classifier, logger *slog.Logger) *Scanner {
	return &Scanner{
		walker:     NewWalker(logger),
		classifier: classifier,
		logger:     logger,
	}
}

// Scan reads the top level of sourceDir. Loose audio and image files stay in
// Loose; each non-hidden subdirectory becomes a pre-formed Folder with its
// files (including disc subdirectories) gathered through the walker.
// Results are sorted by name so repeated runs see the same order.
func (s *Scanner) Scan(ctx context.Context, sourceDir string) (*Snapshot, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFilesystem, "reading source directory %s", sourceDir)
	}

	snap := &Snapshot{}
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			folder, err := s.scanFolder(ctx, filepath.Join(sourceDir, name))
			if err != nil {
				return nil, err
			}
			if len(folder.Files) == 0 {
				s.logger.Debug("skipping folder with no usable files", "folder", name)
				continue
			}
			snap.Folders = append(snap.Folders, folder)
			continue
		}

		kind := s.classifier.Classify(name)
		if kind == domain.FileKindIgnored {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Error("failed to stat file", "path", name, "error", err)
			continue
		}
		snap.Loose = append(snap.Loose, domain.RawFile{
			Path:    filepath.Join(sourceDir, name),
			Name:    name,
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(snap.Loose, func(i, j int) bool { return snap.Loose[i].Name < snap.Loose[j].Name })
	sort.Slice(snap.Folders, func(i, j int) bool { return snap.Folders[i].Name < snap.Folders[j].Name })

	s.logger.Info("source scanned",
		"looseFiles", len(snap.Loose),
		"folders", len(snap.Folders),
	)
	return snap, nil
}

func (s *Scanner) scanFolder(ctx context.Context, folderPath string) (Folder, error) {
	folder := Folder{Name: filepath.Base(folderPath), Path: folderPath}

	for res := range s.walker.WalkFolder(ctx, folderPath) {
		kind := s.classifier.Classify(res.Path)
		if kind == domain.FileKindIgnored {
			continue
		}
		folder.Files = append(folder.Files, res.RawFile(kind))
	}
	if err := ctx.Err(); err != nil {
		return Folder{}, err
	}

	sort.Slice(folder.Files, func(i, j int) bool { return folder.Files[i].Name < folder.Files[j].Name })
	return folder, nil
}
