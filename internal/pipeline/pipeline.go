// Package pipeline orchestrates a full organizer run: scan, group, resolve,
// find covers, stage, tag, commit. Per-unit failures become report records;
// only configuration errors abort a run.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/config"
	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/group"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
	"github.com/listenupapp/listenup-organizer/internal/nameparse"
	"github.com/listenupapp/listenup-organizer/internal/scan"
	"github.com/listenupapp/listenup-organizer/internal/staging"
	"github.com/listenupapp/listenup-organizer/internal/tagging"
)

// tagger applies a tagging mode to a folder of audio files. Satisfied by
// tagging.Engine; tests substitute a stub so they need no real audio files.
type tagger interface {
	Apply(dir string, audioFiles []string, meta *domain.BookMetadata, cover []byte, mode tagging.Mode) (tagging.Result, error)
}

// Pipeline wires the organizer stages together.
type Pipeline struct {
	cfg      *config.Config
	scanner  *scan.Scanner
	grouper  *group.Grouper
	resolver *metadata.Resolver
	finder   *covers.Finder
	staging  *staging.Manager
	tagger   tagger
	logger   *slog.Logger
}

// New creates a pipeline over already-constructed stages.
func New(
	cfg *config.Config,
	scanner *scan.Scanner,
	grouper *group.Grouper,
	resolver *metadata.Resolver,
	finder *covers.Finder,
	stagingMgr *staging.Manager,
	tg tagger,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		scanner:  scanner,
		grouper:  grouper,
		resolver: resolver,
		finder:   finder,
		staging:  stagingMgr,
		tagger:   tg,
		logger:   logger,
	}
}

// Organize runs the full source-to-library pipeline. The returned report is
// finalized and safe to render; err is non-nil only for failures that stop
// the whole run.
func (p *Pipeline) Organize(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		SourceDir:  p.cfg.Library.SourceDir,
		LibraryDir: p.cfg.Library.LibraryDir,
		DryRun:     p.cfg.Run.DryRun,
		StartedAt:  time.Now(),
	}

	p.warnLeftovers()

	snap, err := p.scanner.Scan(ctx, p.cfg.Library.SourceDir)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		p.logger.Info("source directory has no usable files", "dir", p.cfg.Library.SourceDir)
		report.FinishedAt = time.Now()
		report.Finalize()
		return report, nil
	}

	grouped := p.grouper.Group(snap)
	for _, img := range grouped.Residue {
		p.logger.Warn("image has no matching audio, leaving in source", "file", img.Name)
	}
	p.logger.Info("grouped source files",
		"units", len(grouped.Units),
		"orphan_images", len(grouped.Residue),
	)

	report.Units = p.processUnits(ctx, grouped.Units)
	report.FinishedAt = time.Now()
	report.Finalize()

	if !p.cfg.Run.DryRun {
		p.recordAuthors(report.Units)
	}
	return report, ctx.Err()
}

// recordAuthors appends newly resolved author names to the known-authors
// file so later runs classify them without an external lookup.
func (p *Pipeline) recordAuthors(units []domain.UnitResult) {
	path := p.cfg.Library.AuthorsFile
	if path == "" {
		return
	}
	var names []string
	for _, u := range units {
		if u.Author != "" && u.Status != domain.StatusFailed && u.Status != domain.StatusUnclassified {
			names = append(names, u.Author)
		}
	}
	added, err := nameparse.AppendAuthors(path, names)
	if err != nil {
		p.logger.Warn("could not update known-authors file", "path", path, "error", err)
		return
	}
	if added > 0 {
		p.logger.Info("known-authors file updated", "path", path, "added", added)
	}
}

// processUnits fans units out to a bounded worker pool. Concurrency mainly
// bounds outbound API pressure; the per-source rate limiters do the rest.
func (p *Pipeline) processUnits(ctx context.Context, units []domain.BookUnit) []domain.UnitResult {
	jobs := make(chan domain.BookUnit)

	var mu sync.Mutex
	results := make([]domain.UnitResult, 0, len(units))

	var wg sync.WaitGroup
	for range p.cfg.Run.Concurrency {
		wg.Go(func() {
			for unit := range jobs {
				res := p.processUnit(ctx, unit)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		})
	}

feed:
	for _, unit := range units {
		select {
		case jobs <- unit:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// warnLeftovers reports staging directories abandoned by earlier runs.
// They are never cleaned automatically; the operator decides what to keep.
func (p *Pipeline) warnLeftovers() {
	leftovers, err := p.staging.Leftovers()
	if err != nil {
		p.logger.Warn("could not check for leftover staging directories", "error", err)
		return
	}
	for _, dir := range leftovers {
		p.logger.Warn("leftover staging directory from an earlier run", "dir", dir)
	}
}

// failResult converts a per-unit error into a report record.
func failResult(u *domain.BookUnit, err error) domain.UnitResult {
	return domain.UnitResult{
		UnitID:    u.ID,
		GroupKey:  u.GroupKey,
		Status:    domain.StatusFailed,
		ErrorCode: string(errors.CodeOf(err)),
		ErrorMsg:  err.Error(),
		Files:     u.FileNames(),
	}
}
