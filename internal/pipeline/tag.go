package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/id"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
	"github.com/listenupapp/listenup-organizer/internal/staging"
	"github.com/listenupapp/listenup-organizer/internal/tagging"
)

// Tag runs the configured tagging mode over every book folder in the
// library. Folders without a sidecar get the metadata cascade first, so a
// library built by hand can still be tagged.
func (p *Pipeline) Tag(ctx context.Context) (*domain.RunReport, error) {
	mode, err := tagging.ParseMode(p.cfg.Run.Mode)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "tag mode")
	}

	report := &domain.RunReport{
		LibraryDir: p.cfg.Library.LibraryDir,
		DryRun:     p.cfg.Run.DryRun,
		StartedAt:  time.Now(),
	}

	books, err := p.LibraryBooks()
	if err != nil {
		return nil, err
	}
	p.logger.Info("tagging library", "books", len(books), "mode", mode)

	jobs := make(chan BookFolder)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range p.cfg.Run.Concurrency {
		wg.Go(func() {
			for book := range jobs {
				res := p.tagBook(ctx, book, mode)
				mu.Lock()
				report.Units = append(report.Units, res)
				mu.Unlock()
			}
		})
	}

feed:
	for _, book := range books {
		select {
		case jobs <- book:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	report.FinishedAt = time.Now()
	report.Finalize()
	return report, ctx.Err()
}

// tagBook applies the mode to one book folder and converts the outcome
// into a report record.
func (p *Pipeline) tagBook(ctx context.Context, book BookFolder, mode tagging.Mode) domain.UnitResult {
	log := p.logger.With("book", book.Path)
	result := domain.UnitResult{
		UnitID:   id.MustGenerate("book"),
		GroupKey: book.Author + "/" + book.Title,
		Path:     book.Path,
		Status:   domain.StatusOrganized,
	}
	fail := func(err error) domain.UnitResult {
		log.Error("tagging failed", "error", err)
		result.Status = domain.StatusFailed
		result.ErrorCode = string(errors.CodeOf(err))
		result.ErrorMsg = err.Error()
		return result
	}

	if mode == tagging.ModeEdit {
		return p.editBook(book, log, result)
	}

	var meta *domain.BookMetadata
	var source string
	if mode.NeedsMetadata() {
		var err error
		meta, source, err = p.bookMetadata(ctx, book, log)
		if err != nil {
			return fail(err)
		}
		result.Source = source
	}

	var embed []byte
	if mode.NeedsCover() {
		cover, err := p.bookCover(ctx, book, meta, mode, log)
		if err != nil && !errors.IsNotFound(err) {
			return fail(err)
		}
		if cover == nil || !cover.Validated {
			result.Status = domain.StatusCoverMissing
		}
		if cover != nil {
			embed, err = p.embeddableCover(cover)
			if err != nil {
				log.Warn("cover could not be prepared for embedding", "error", err)
				embed = nil
			}
			if !p.cfg.Run.DryRun && cover.Origin != domain.CoverOriginLocal {
				if err := writeCoverFile(book.Path, cover.Data); err != nil {
					log.Warn("could not write cover file", "error", err)
				}
			}
		}
	}

	// Cover-writing modes with nothing to write: the book stays
	// cover-missing, it is not a failure.
	if embed == nil && (mode == tagging.ModeCoverOnly || mode == tagging.ModeFixCovers) {
		log.Warn("no usable cover found, files left untouched")
		return result
	}

	if p.cfg.Run.DryRun {
		log.Info("dry run, would tag", "mode", mode, "status", result.Status)
		return result
	}

	applied, err := p.tagger.Apply(book.Path, book.AudioFiles, meta, embed, mode)
	if err != nil {
		return fail(err)
	}
	if applied.Skipped {
		log.Debug("book already tagged, skipped")
	} else {
		log.Info("book tagged", "files", applied.TaggedFiles, "covers", applied.CoversWritten)
	}
	return result
}

// editBook rewrites one metadata field via the sidecar and re-tags from the
// edited document. Editing through the sidecar keeps every other field
// intact even though the writers replace whole tag sets.
func (p *Pipeline) editBook(book BookFolder, log *slog.Logger, result domain.UnitResult) domain.UnitResult {
	fail := func(err error) domain.UnitResult {
		log.Error("edit failed", "error", err)
		result.Status = domain.StatusFailed
		result.ErrorCode = string(errors.CodeOf(err))
		result.ErrorMsg = err.Error()
		return result
	}

	doc, err := sidecar.Load(book.Path)
	if err != nil {
		return fail(errors.Wrap(err, errors.CodeValidation, "edit mode needs a metadata sidecar"))
	}
	meta := doc.ToBook()

	changed, err := tagging.ApplyEdit(meta, p.cfg.Run.EditField, p.cfg.Run.EditFrom, p.cfg.Run.EditTo)
	if err != nil {
		return fail(err)
	}
	if !changed {
		log.Debug("edit matched nothing, skipped")
		return result
	}

	if p.cfg.Run.DryRun {
		log.Info("dry run, would edit",
			"field", p.cfg.Run.EditField,
			"from", p.cfg.Run.EditFrom,
			"to", p.cfg.Run.EditTo,
		)
		return result
	}

	if err := sidecar.Save(book.Path, sidecar.FromBook(meta)); err != nil {
		return fail(err)
	}
	if _, err := p.tagger.Apply(book.Path, book.AudioFiles, meta, nil, tagging.ModeTagsOnly); err != nil {
		return fail(err)
	}
	log.Info("book edited", "field", p.cfg.Run.EditField)
	return result
}

// bookMetadata loads the folder's sidecar, falling back to the resolution
// cascade seeded from the Author/Title folder names. A freshly resolved
// result is saved as the sidecar so the next run skips the lookup.
func (p *Pipeline) bookMetadata(ctx context.Context, book BookFolder, log *slog.Logger) (*domain.BookMetadata, string, error) {
	if book.HasSidecar {
		doc, err := sidecar.Load(book.Path)
		if err == nil {
			return doc.ToBook(), "sidecar", nil
		}
		log.Warn("unreadable sidecar, re-resolving", "error", err)
	}

	q := metadata.Query{Title: book.Title, Author: book.Author, RawName: book.Title + " " + book.Author}
	meta, source, err := p.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, "", err
	}
	if !p.cfg.Run.DryRun {
		if err := sidecar.Save(book.Path, sidecar.FromBook(meta)); err != nil {
			log.Warn("could not save sidecar", "error", err)
		}
	}
	return meta, source, nil
}

// bookCover finds a cover for a committed book folder. The folder's own
// cover file is tried first; fix-covers skips it, since the point of that
// mode is replacing art that already failed validation.
func (p *Pipeline) bookCover(ctx context.Context, book BookFolder, meta *domain.BookMetadata, mode tagging.Mode, log *slog.Logger) (*domain.CoverAsset, error) {
	var images []string
	if mode != tagging.ModeFixCovers {
		if path := localCoverPath(book.Path); path != "" {
			images = append(images, path)
		}
	}

	q := metadata.Query{Title: book.Title, Author: book.Author}
	if meta != nil {
		q = metadata.Query{Title: meta.Title, Author: meta.Author()}
	}
	return p.finder.Find(ctx, q, images, book.AudioFiles)
}

// localCoverPath returns the folder's cover image when one exists.
func localCoverPath(dir string) string {
	for _, name := range []string{CoverFileName, "cover.png", "folder.jpg", "folder.png"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// writeCoverFile atomically replaces the folder's cover image.
func writeCoverFile(dir string, data []byte) error {
	return staging.WriteFileAtomic(filepath.Join(dir, CoverFileName), data)
}
