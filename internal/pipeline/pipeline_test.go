package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-organizer/internal/config"
	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/group"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
	"github.com/listenupapp/listenup-organizer/internal/nameparse"
	"github.com/listenupapp/listenup-organizer/internal/scan"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
	"github.com/listenupapp/listenup-organizer/internal/staging"
	"github.com/listenupapp/listenup-organizer/internal/tagging"
)

type stubSource struct {
	name   string
	lookup func(metadata.Query) (*domain.BookMetadata, error)
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Lookup(_ context.Context, q metadata.Query) (*domain.BookMetadata, error) {
	return s.lookup(q)
}

type stubTagger struct {
	mu    sync.Mutex
	calls []tagging.Mode
	err   error
}

func (s *stubTagger) Apply(_ string, files []string, _ *domain.BookMetadata, _ []byte, mode tagging.Mode) (tagging.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, mode)
	if s.err != nil {
		return tagging.Result{}, s.err
	}
	return tagging.Result{TaggedFiles: len(files)}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(source, library string) *config.Config {
	return &config.Config{
		Library: config.LibraryConfig{
			SourceDir:           source,
			LibraryDir:          library,
			UnclassifiedDirName: "unclassified",
		},
		Parser: config.ParserConfig{
			AudioExtensions: []string{".mp3", ".m4b", ".flac"},
			ImageExtensions: []string{".jpg", ".png"},
		},
		Covers: config.CoverConfig{MinResolution: 500, MaxEmbedDimension: 1500},
		Run:    config.RunConfig{Mode: "smart", Concurrency: 2, MaxRetries: 1},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, sources []metadata.Source, tg *stubTagger) *Pipeline {
	t.Helper()
	logger := testLogger()
	classifier := scan.NewClassifier(cfg.Parser.AudioExtensions, cfg.Parser.ImageExtensions)
	parser := nameparse.New(nil, nil)
	rules := covers.Rules{MinResolution: cfg.Covers.MinResolution, SquareTolerance: cfg.Covers.SquareTolerance}
	finder := covers.NewFinder(nil, covers.NewDownloader(logger), rules, logger)
	return New(
		cfg,
		scan.NewScanner(classifier, logger),
		group.New(parser, logger),
		metadata.NewResolver(sources, cfg.Run.MaxRetries, logger),
		finder,
		staging.NewManager(cfg.Library.LibraryDir, logger),
		tg,
		logger,
	)
}

func writeSourceFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0o644))
	}
}

func resolvedSource(meta *domain.BookMetadata) metadata.Source {
	return &stubSource{name: "stub", lookup: func(metadata.Query) (*domain.BookMetadata, error) {
		return meta, nil
	}}
}

func missSource() metadata.Source {
	return &stubSource{name: "miss", lookup: func(metadata.Query) (*domain.BookMetadata, error) {
		return nil, errors.NotFound("no match")
	}}
}

func TestOrganizeCommitsResolvedUnit(t *testing.T) {
	source := t.TempDir()
	library := t.TempDir()
	writeSourceFiles(t, source, "Dune Part 1.mp3", "Dune Part 2.mp3")

	meta := &domain.BookMetadata{Title: "Dune", Authors: []string{"Frank Herbert"}}
	tg := &stubTagger{}
	p := newTestPipeline(t, testConfig(source, library), []metadata.Source{resolvedSource(meta)}, tg)

	report, err := p.Organize(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)

	unit := report.Units[0]
	// No cover source is wired, so the unit lands without validated art.
	assert.Equal(t, domain.StatusCoverMissing, unit.Status)
	assert.Equal(t, "stub", unit.Source)
	assert.Equal(t, 1, report.Summary.CoverMissing)

	dest := filepath.Join(library, "Frank Herbert", "Dune")
	assert.Equal(t, dest, unit.Path)
	assert.FileExists(t, filepath.Join(dest, "Dune Part 1.mp3"))
	assert.FileExists(t, filepath.Join(dest, "Dune Part 2.mp3"))
	assert.FileExists(t, filepath.Join(dest, sidecar.FileName))

	// Source files are gone.
	assert.NoFileExists(t, filepath.Join(source, "Dune Part 1.mp3"))

	require.Len(t, tg.calls, 1)
	assert.Equal(t, tagging.ModeAll, tg.calls[0])

	doc, err := sidecar.Load(dest)
	require.NoError(t, err)
	assert.Equal(t, "Dune", doc.Title)
}

func TestOrganizeRecordsAuthors(t *testing.T) {
	source := t.TempDir()
	library := t.TempDir()
	writeSourceFiles(t, source, "The Martian.mp3")

	authorsFile := filepath.Join(t.TempDir(), "authors.txt")
	require.NoError(t, os.WriteFile(authorsFile, []byte("Frank Herbert\n"), 0o644))

	cfg := testConfig(source, library)
	cfg.Library.AuthorsFile = authorsFile

	meta := &domain.BookMetadata{Title: "The Martian", Authors: []string{"Andy Weir"}}
	p := newTestPipeline(t, cfg, []metadata.Source{resolvedSource(meta)}, &stubTagger{})

	_, err := p.Organize(context.Background())
	require.NoError(t, err)

	authors, err := nameparse.LoadAuthors(authorsFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frank Herbert", "Andy Weir"}, authors)
}

func TestOrganizeContinuesAfterUnitFailure(t *testing.T) {
	source := t.TempDir()
	library := t.TempDir()
	writeSourceFiles(t, source, "Dune.mp3", "Hyperion.mp3")

	// One unit hits a hard source failure; the other must still commit.
	src := &stubSource{name: "stub", lookup: func(q metadata.Query) (*domain.BookMetadata, error) {
		if strings.Contains(q.RawName, "Hyperion") {
			return nil, errors.Wrap(os.ErrClosed, errors.CodeInternal, "source blew up")
		}
		return &domain.BookMetadata{Title: "Dune", Authors: []string{"Frank Herbert"}}, nil
	}}

	tg := &stubTagger{}
	p := newTestPipeline(t, testConfig(source, library), []metadata.Source{src}, tg)

	report, err := p.Organize(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 2)

	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.CoverMissing)
	assert.Zero(t, report.Summary.Unclassified)

	var failed, committed *domain.UnitResult
	for i := range report.Units {
		if report.Units[i].Status == domain.StatusFailed {
			failed = &report.Units[i]
		} else {
			committed = &report.Units[i]
		}
	}
	require.NotNil(t, failed)
	require.NotNil(t, committed)
	assert.Equal(t, string(errors.CodeInternal), failed.ErrorCode)
	assert.Contains(t, failed.ErrorMsg, "source blew up")

	// The healthy unit reached the library despite its sibling failing.
	assert.FileExists(t, filepath.Join(library, "Frank Herbert", "Dune", "Dune.mp3"))
	assert.NoFileExists(t, filepath.Join(source, "Dune.mp3"))
	// The failed unit's file never left the source directory.
	assert.FileExists(t, filepath.Join(source, "Hyperion.mp3"))
}

func TestOrganizeDryRunMovesNothing(t *testing.T) {
	source := t.TempDir()
	library := t.TempDir()
	writeSourceFiles(t, source, "Dune.mp3")

	cfg := testConfig(source, library)
	cfg.Run.DryRun = true
	meta := &domain.BookMetadata{Title: "Dune", Authors: []string{"Frank Herbert"}}
	tg := &stubTagger{}
	p := newTestPipeline(t, cfg, []metadata.Source{resolvedSource(meta)}, tg)

	report, err := p.Organize(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, filepath.Join(library, "Frank Herbert", "Dune"), report.Units[0].Path)

	assert.FileExists(t, filepath.Join(source, "Dune.mp3"))
	assert.NoDirExists(t, filepath.Join(library, "Frank Herbert"))
	assert.Empty(t, tg.calls)
}

func TestOrganizeRoutesUnclassified(t *testing.T) {
	source := t.TempDir()
	library := t.TempDir()
	writeSourceFiles(t, source, "Mystery Recording.mp3")

	tg := &stubTagger{}
	p := newTestPipeline(t, testConfig(source, library), []metadata.Source{missSource()}, tg)

	report, err := p.Organize(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, domain.StatusUnclassified, report.Units[0].Status)
	assert.Equal(t, 1, report.Summary.Unclassified)

	dest := filepath.Join(library, "unclassified", "Mystery Recording")
	assert.FileExists(t, filepath.Join(dest, "Mystery Recording.mp3"))
	assert.NoFileExists(t, filepath.Join(dest, sidecar.FileName))
	assert.Empty(t, tg.calls)
}

func TestOrganizeEmptySource(t *testing.T) {
	p := newTestPipeline(t, testConfig(t.TempDir(), t.TempDir()), nil, &stubTagger{})
	report, err := p.Organize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Units)
}

func TestDisplayName(t *testing.T) {
	folderUnit := &domain.BookUnit{Folder: "/src/The Fifth Season", GroupKey: "the fifth season"}
	assert.Equal(t, "The Fifth Season", displayName(folderUnit))

	looseUnit := &domain.BookUnit{
		GroupKey: "dune",
		Files:    []domain.RawFile{{Name: "Dune Part 1.mp3"}},
	}
	assert.Equal(t, "Dune", displayName(looseUnit))
}

func TestDestinationForSanitizesNames(t *testing.T) {
	cfg := testConfig("", "/library")
	p := &Pipeline{cfg: cfg}
	meta := &domain.BookMetadata{Title: "What If?: Serious Answers", Authors: []string{"Randall Munroe"}}
	dest := p.destinationFor(meta)
	assert.Equal(t, filepath.Join("/library", "Randall Munroe", "What If Serious Answers"), dest)
}

func TestLibraryBooks(t *testing.T) {
	library := t.TempDir()
	cfg := testConfig("", library)

	book := filepath.Join(library, "Frank Herbert", "Dune")
	require.NoError(t, os.MkdirAll(book, 0o755))
	writeSourceFiles(t, book, "part 2.mp3", "part 1.mp3", "part 10.mp3")
	require.NoError(t, os.WriteFile(filepath.Join(book, sidecar.FileName), []byte("{}"), 0o644))

	// Folders that must be skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(library, "unclassified", "Junk"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(library, ".staging-unit-x"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(library, "Empty Author", "No Audio"), 0o755))

	p := &Pipeline{cfg: cfg, logger: testLogger()}
	books, err := p.LibraryBooks()
	require.NoError(t, err)
	require.Len(t, books, 1)

	got := books[0]
	assert.Equal(t, "Frank Herbert", got.Author)
	assert.Equal(t, "Dune", got.Title)
	assert.True(t, got.HasSidecar)
	require.Len(t, got.AudioFiles, 3)
	// Natural ordering: 1, 2, 10.
	assert.Equal(t, filepath.Join(book, "part 1.mp3"), got.AudioFiles[0])
	assert.Equal(t, filepath.Join(book, "part 10.mp3"), got.AudioFiles[2])
}

func TestTagEditRewritesSidecar(t *testing.T) {
	library := t.TempDir()
	book := filepath.Join(library, "Frank Herbert", "Dune Messaih")
	require.NoError(t, os.MkdirAll(book, 0o755))
	writeSourceFiles(t, book, "dune.mp3")

	meta := &domain.BookMetadata{Title: "Dune Messaih", Authors: []string{"Frank Herbert"}}
	require.NoError(t, sidecar.Save(book, sidecar.FromBook(meta)))

	cfg := testConfig("", library)
	cfg.Run.Mode = "edit"
	cfg.Run.EditField = "title"
	cfg.Run.EditFrom = "Dune Messaih"
	cfg.Run.EditTo = "Dune Messiah"

	tg := &stubTagger{}
	p := newTestPipeline(t, cfg, nil, tg)

	report, err := p.Tag(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, domain.StatusOrganized, report.Units[0].Status)

	doc, err := sidecar.Load(book)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", doc.Title)

	require.Len(t, tg.calls, 1)
	assert.Equal(t, tagging.ModeTagsOnly, tg.calls[0])
}

func TestTagEditWithoutSidecarFails(t *testing.T) {
	library := t.TempDir()
	book := filepath.Join(library, "Author", "Title")
	require.NoError(t, os.MkdirAll(book, 0o755))
	writeSourceFiles(t, book, "title.mp3")

	cfg := testConfig("", library)
	cfg.Run.Mode = "edit"
	cfg.Run.EditField = "title"
	cfg.Run.EditTo = "New"

	p := newTestPipeline(t, cfg, nil, &stubTagger{})
	report, err := p.Tag(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, domain.StatusFailed, report.Units[0].Status)
	assert.Equal(t, 1, report.Summary.Failed)
}

func TestTagUsesSidecarMetadata(t *testing.T) {
	library := t.TempDir()
	book := filepath.Join(library, "Frank Herbert", "Dune")
	require.NoError(t, os.MkdirAll(book, 0o755))
	writeSourceFiles(t, book, "dune.mp3")
	meta := &domain.BookMetadata{Title: "Dune", Authors: []string{"Frank Herbert"}}
	require.NoError(t, sidecar.Save(book, sidecar.FromBook(meta)))

	cfg := testConfig("", library)
	cfg.Run.Mode = "tags-only"

	tg := &stubTagger{}
	// No resolver sources: the sidecar must be enough.
	p := newTestPipeline(t, cfg, nil, tg)

	report, err := p.Tag(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, domain.StatusOrganized, report.Units[0].Status)
	assert.Equal(t, "sidecar", report.Units[0].Source)
	require.Len(t, tg.calls, 1)
	assert.Equal(t, tagging.ModeTagsOnly, tg.calls[0])
}

func TestTagCoverOnlyWithoutCoverIsNotFailure(t *testing.T) {
	library := t.TempDir()
	book := filepath.Join(library, "Frank Herbert", "Dune")
	require.NoError(t, os.MkdirAll(book, 0o755))
	writeSourceFiles(t, book, "dune.mp3")

	cfg := testConfig("", library)
	cfg.Run.Mode = "cover-only"

	tg := &stubTagger{}
	// No cover sources and no local art: the cascade finds nothing.
	p := newTestPipeline(t, cfg, nil, tg)

	report, err := p.Tag(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, domain.StatusCoverMissing, report.Units[0].Status)
	assert.Empty(t, report.Units[0].ErrorCode)
	assert.Equal(t, 1, report.Summary.CoverMissing)
	assert.Zero(t, report.Summary.Failed)
	// Nothing to write, so the engine is never invoked.
	assert.Empty(t, tg.calls)
}

func TestTagFixCoversWithoutCoverIsNotFailure(t *testing.T) {
	library := t.TempDir()
	book := filepath.Join(library, "Ann Leckie", "Ancillary Justice")
	require.NoError(t, os.MkdirAll(book, 0o755))
	writeSourceFiles(t, book, "aj.mp3")

	cfg := testConfig("", library)
	cfg.Run.Mode = "fix-covers"

	tg := &stubTagger{}
	p := newTestPipeline(t, cfg, nil, tg)

	report, err := p.Tag(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, domain.StatusCoverMissing, report.Units[0].Status)
	assert.Zero(t, report.Summary.Failed)
	assert.Empty(t, tg.calls)
}

func TestTagInvalidMode(t *testing.T) {
	cfg := testConfig("", t.TempDir())
	cfg.Run.Mode = "bogus"
	p := newTestPipeline(t, cfg, nil, &stubTagger{})
	_, err := p.Tag(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfig, errors.CodeOf(err))
}
