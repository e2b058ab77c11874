package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/duration"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
	"github.com/listenupapp/listenup-organizer/internal/nameparse"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
	"github.com/listenupapp/listenup-organizer/internal/tagging"
)

// CoverFileName is the sidecar image written next to the audio files.
const CoverFileName = "cover.jpg"

// processUnit takes one unit from resolution through commit. Every failure
// path returns a report record; nothing is thrown away silently.
func (p *Pipeline) processUnit(ctx context.Context, unit domain.BookUnit) domain.UnitResult {
	log := p.logger.With("unit", unit.ID, "group", unit.GroupKey)
	log.Info("processing unit", "files", len(unit.Files), "size", unit.TotalSize())

	q := queryFor(&unit)
	meta, source, err := p.resolver.Resolve(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return failResult(&unit, ctx.Err())
		}
		if errors.CodeOf(err) == errors.CodeClassification || errors.IsNotFound(err) {
			log.Warn("unit could not be classified", "error", err)
			return p.routeUnclassified(&unit, log)
		}
		log.Error("metadata resolution failed", "error", err)
		return failResult(&unit, err)
	}
	log.Info("metadata resolved", "source", source, "author", meta.Author(), "title", meta.Title)

	// Prefer the resolved names for the cover query; they beat whatever the
	// filename parser guessed.
	coverQuery := metadata.Query{Title: meta.Title, Author: meta.Author(), RawName: q.RawName}
	cover, coverErr := p.finder.Find(ctx, coverQuery, imagePaths(&unit), audioPaths(&unit))
	if coverErr != nil && !errors.IsNotFound(coverErr) {
		if ctx.Err() != nil {
			return failResult(&unit, ctx.Err())
		}
		log.Warn("cover cascade failed", "error", coverErr)
	}

	dest := p.destinationFor(meta)
	status := domain.StatusOrganized
	if cover == nil || !cover.Validated {
		status = domain.StatusCoverMissing
	}

	if p.cfg.Run.DryRun {
		log.Info("dry run, would organize", "dest", dest, "status", status)
		return domain.UnitResult{
			UnitID:   unit.ID,
			GroupKey: unit.GroupKey,
			Status:   status,
			Author:   meta.Author(),
			Path:     dest,
			Source:   source,
			Files:    unit.FileNames(),
		}
	}

	final, err := p.commitUnit(&unit, meta, cover, source, dest, log)
	if err != nil {
		return failResult(&unit, err)
	}

	log.Info("unit organized", "path", final, "source", source)
	return domain.UnitResult{
		UnitID:   unit.ID,
		GroupKey: unit.GroupKey,
		Status:   status,
		Author:   meta.Author(),
		Path:     final,
		Source:   source,
		Files:    unit.FileNames(),
	}
}

// commitUnit stages, tags, and commits a resolved unit. On error the stage
// is abandoned in place so already-moved files are never lost.
func (p *Pipeline) commitUnit(unit *domain.BookUnit, meta *domain.BookMetadata, cover *domain.CoverAsset, source, dest string, log *slog.Logger) (string, error) {
	stage, err := p.staging.Begin(unit.ID)
	if err != nil {
		return "", err
	}

	final, err := func() (string, error) {
		staged := make([]string, 0, len(unit.Files))
		for _, f := range unit.Files {
			moved, err := stage.Add(f.Path)
			if err != nil {
				return "", err
			}
			staged = append(staged, moved)
		}
		for _, img := range unit.Images {
			if _, err := stage.Add(img.Path); err != nil {
				return "", err
			}
		}

		if cover != nil {
			if err := stage.WriteFile(CoverFileName, cover.Data); err != nil {
				return "", err
			}
		}

		if len(meta.Chapters) == 0 {
			meta.Chapters = duration.Synthesize(staged)
		}

		doc := sidecar.FromBook(meta)
		doc.Organizer = &sidecar.Provenance{
			ProcessedAt:   time.Now().UTC(),
			Source:        source,
			CoverFound:    cover != nil && cover.Validated,
			FileCount:     len(unit.Files),
			TotalSize:     unit.TotalSize(),
			OriginalFiles: unit.FileNames(),
		}
		data, err := doc.Marshal()
		if err != nil {
			return "", err
		}
		if err := stage.WriteFile(sidecar.FileName, data); err != nil {
			return "", err
		}

		embed, err := p.embeddableCover(cover)
		if err != nil {
			log.Warn("cover could not be prepared for embedding", "error", err)
			embed = nil
		}
		if _, err := p.tagger.Apply(stage.Dir(), staged, meta, embed, tagging.ModeAll); err != nil {
			return "", err
		}

		return stage.Commit(dest)
	}()
	if err != nil {
		if dir := stage.Abandon(); dir != "" {
			log.Error("unit failed, staged files left for inspection", "dir", dir, "error", err)
		}
		return "", err
	}
	return final, nil
}

// routeUnclassified moves an unclassifiable unit into the unclassified
// bucket so the source directory still empties out. Tags are not written;
// there is no trusted metadata to write.
func (p *Pipeline) routeUnclassified(unit *domain.BookUnit, log *slog.Logger) domain.UnitResult {
	dest := filepath.Join(
		p.cfg.Library.LibraryDir,
		p.cfg.Library.UnclassifiedDirName,
		nameparse.SafeFolderName(displayName(unit)),
	)

	if p.cfg.Run.DryRun {
		log.Info("dry run, would move to unclassified", "dest", dest)
		return domain.UnitResult{
			UnitID:   unit.ID,
			GroupKey: unit.GroupKey,
			Status:   domain.StatusUnclassified,
			Path:     dest,
			Files:    unit.FileNames(),
		}
	}

	stage, err := p.staging.Begin(unit.ID)
	if err != nil {
		return failResult(unit, err)
	}
	final, err := func() (string, error) {
		for _, f := range unit.Files {
			if _, err := stage.Add(f.Path); err != nil {
				return "", err
			}
		}
		for _, img := range unit.Images {
			if _, err := stage.Add(img.Path); err != nil {
				return "", err
			}
		}
		return stage.Commit(dest)
	}()
	if err != nil {
		if dir := stage.Abandon(); dir != "" {
			log.Error("unclassified routing failed, staged files left for inspection", "dir", dir, "error", err)
		}
		return failResult(unit, err)
	}

	log.Info("unit moved to unclassified", "path", final)
	return domain.UnitResult{
		UnitID:   unit.ID,
		GroupKey: unit.GroupKey,
		Status:   domain.StatusUnclassified,
		Path:     final,
		Files:    unit.FileNames(),
	}
}

// destinationFor builds the Author/Title library path for resolved metadata.
func (p *Pipeline) destinationFor(meta *domain.BookMetadata) string {
	return filepath.Join(
		p.cfg.Library.LibraryDir,
		nameparse.SafeFolderName(meta.Author()),
		nameparse.SafeFolderName(meta.Title),
	)
}

// embeddableCover downsizes a cover for embedding per config. Nil in, nil out.
func (p *Pipeline) embeddableCover(cover *domain.CoverAsset) ([]byte, error) {
	if cover == nil {
		return nil, nil
	}
	if p.cfg.Covers.MaxEmbedDimension <= 0 {
		return cover.Data, nil
	}
	return covers.PrepareForEmbedding(cover, p.cfg.Covers.MaxEmbedDimension)
}

// queryFor builds the lookup query from what the parser inferred.
func queryFor(u *domain.BookUnit) metadata.Query {
	return metadata.Query{
		Title:   u.Title,
		Author:  u.Author,
		RawName: displayName(u),
	}
}

// displayName is the human-readable name of a unit: the folder name for
// pre-formed units, the first file's stem with part markers stripped for
// loose-file units.
func displayName(u *domain.BookUnit) string {
	if u.Folder != "" {
		return filepath.Base(u.Folder)
	}
	if len(u.Files) > 0 {
		name := u.Files[0].Name
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		return nameparse.StripPartMarkers(stem)
	}
	return u.GroupKey
}

func audioPaths(u *domain.BookUnit) []string {
	paths := make([]string, len(u.Files))
	for i, f := range u.Files {
		paths[i] = f.Path
	}
	return paths
}

func imagePaths(u *domain.BookUnit) []string {
	paths := make([]string, len(u.Images))
	for i, f := range u.Images {
		paths[i] = f.Path
	}
	return paths
}
