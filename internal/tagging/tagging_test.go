package tagging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"smart", ModeSmart, false},
		{"ALL", ModeAll, false},
		{" tags-only ", ModeTagsOnly, false},
		{"cover-only", ModeCoverOnly, false},
		{"fix-covers", ModeFixCovers, false},
		{"edit", ModeEdit, false},
		{"everything", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestModeNeeds(t *testing.T) {
	assert.True(t, ModeSmart.NeedsMetadata())
	assert.True(t, ModeSmart.NeedsCover())
	assert.True(t, ModeTagsOnly.NeedsMetadata())
	assert.False(t, ModeTagsOnly.NeedsCover())
	assert.False(t, ModeCoverOnly.NeedsMetadata())
	assert.True(t, ModeCoverOnly.NeedsCover())
	assert.True(t, ModeFixCovers.NeedsCover())
	assert.False(t, ModeFixCovers.NeedsMetadata())
	assert.True(t, ModeEdit.NeedsMetadata())
	assert.False(t, ModeEdit.NeedsCover())
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("/lib/book/part01.mp3"))
	assert.True(t, Supported("book.M4B"))
	assert.True(t, Supported("book.flac"))
	assert.True(t, Supported("book.opus"))
	assert.False(t, Supported("cover.jpg"))
	assert.False(t, Supported("notes.txt"))
	assert.False(t, Supported("noext"))
}

func TestBuildFileTagsSingleFile(t *testing.T) {
	meta := &domain.BookMetadata{
		Title:       "Hyperion",
		Authors:     []string{"Dan Simmons"},
		Narrators:   []string{"Marc Vietor", "Allyson Johnson"},
		Series:      []domain.SeriesInfo{{Name: "Hyperion Cantos", Sequence: "1"}},
		Genres:      []string{"Science Fiction"},
		PublishYear: "1989",
		ISBN:        "9780553283686",
		Language:    "en",
	}

	tags := BuildFileTags(meta, 1, []byte{0xFF, 0xD8})
	require.Len(t, tags, 1)
	tag := tags[0]
	assert.Equal(t, "Hyperion", tag.Title)
	assert.Equal(t, "Hyperion Cantos - Hyperion", tag.Album)
	assert.Equal(t, "Dan Simmons", tag.Artist)
	assert.Equal(t, "Dan Simmons", tag.AlbumArtist)
	assert.Equal(t, "Marc Vietor, Allyson Johnson", tag.Narrator)
	assert.Equal(t, "Hyperion Cantos", tag.Series)
	assert.Equal(t, "1", tag.SeriesPart)
	assert.Equal(t, 1, tag.TrackNumber)
	assert.Equal(t, 1, tag.TotalTracks)
	assert.NotEmpty(t, tag.CoverArt)
}

func TestBuildFileTagsMultiFile(t *testing.T) {
	meta := &domain.BookMetadata{
		Title:   "The Stand",
		Authors: []string{"Stephen King"},
	}

	tags := BuildFileTags(meta, 3, nil)
	require.Len(t, tags, 3)
	assert.Equal(t, "The Stand (1/3)", tags[0].Title)
	assert.Equal(t, "The Stand (3/3)", tags[2].Title)
	assert.Equal(t, "The Stand", tags[0].Album)
	assert.Equal(t, 2, tags[1].TrackNumber)
	assert.Equal(t, 3, tags[1].TotalTracks)
	assert.Empty(t, tags[0].CoverArt)
}

func TestDetectMimeType(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0}
	assert.Equal(t, "image/png", detectMimeType(png))
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}
	assert.Equal(t, "image/jpeg", detectMimeType(jpeg))
	assert.Equal(t, "image/jpeg", detectMimeType(nil))
	assert.Equal(t, "image/jpeg", detectMimeType([]byte("not an image")))
}

func testEngine() *Engine {
	rules := covers.Rules{MinResolution: 500, SquareTolerance: 10}
	return NewEngine(rules, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestApplySmartSkipsMarkedFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sidecar.WriteMarker(dir))

	audio := filepath.Join(dir, "book.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("stub"), 0o644))

	res, err := testEngine().Apply(dir, []string{audio}, &domain.BookMetadata{Title: "X"}, nil, ModeSmart)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.TaggedFiles)
}

func TestApplyFailedWriteClearsStaleMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sidecar.WriteMarker(dir))

	// Unsupported container makes the write fail after the marker check.
	bad := filepath.Join(dir, "book.xyz")
	require.NoError(t, os.WriteFile(bad, []byte("stub"), 0o644))

	_, err := testEngine().Apply(dir, []string{bad}, &domain.BookMetadata{Title: "X"}, nil, ModeAll)
	require.Error(t, err)
	assert.False(t, sidecar.HasMarker(dir))
}

func TestApplyNoAudioFiles(t *testing.T) {
	_, err := testEngine().Apply(t.TempDir(), nil, nil, nil, ModeAll)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestApplyAllRequiresMetadata(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "book.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("stub"), 0o644))

	_, err := testEngine().Apply(dir, []string{audio}, nil, nil, ModeAll)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestApplyCoverOnlyRequiresCover(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "book.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("stub"), 0o644))

	_, err := testEngine().Apply(dir, []string{audio}, nil, nil, ModeCoverOnly)
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestApplyEditString(t *testing.T) {
	meta := &domain.BookMetadata{Title: "Dune Messaih"}

	changed, err := ApplyEdit(meta, "title", "Dune Messaih", "Dune Messiah")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Dune Messiah", meta.Title)

	// No match leaves the field untouched.
	changed, err = ApplyEdit(meta, "title", "Wrong", "Other")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "Dune Messiah", meta.Title)

	// Empty from sets unconditionally.
	changed, err = ApplyEdit(meta, "year", "", "1969")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "1969", meta.PublishYear)
}

func TestApplyEditList(t *testing.T) {
	meta := &domain.BookMetadata{Authors: []string{"F. Herbert", "Kevin J. Anderson"}}

	changed, err := ApplyEdit(meta, "author", "F. Herbert", "Frank Herbert")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"Frank Herbert", "Kevin J. Anderson"}, meta.Authors)

	// Empty from replaces the whole list.
	changed, err = ApplyEdit(meta, "narrator", "", "Scott Brick")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"Scott Brick"}, meta.Narrators)
}

func TestApplyEditSeries(t *testing.T) {
	meta := &domain.BookMetadata{Series: []domain.SeriesInfo{{Name: "Dune Saga", Sequence: "2"}}}

	changed, err := ApplyEdit(meta, "series", "Dune Saga", "Dune")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Dune", meta.Series[0].Name)
	assert.Equal(t, "2", meta.Series[0].Sequence)
}

func TestApplyEditUnknownField(t *testing.T) {
	_, err := ApplyEdit(&domain.BookMetadata{}, "bitrate", "", "320")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestApplyEditIdempotent(t *testing.T) {
	meta := &domain.BookMetadata{Title: "Dune"}
	changed, err := ApplyEdit(meta, "title", "", "Dune")
	require.NoError(t, err)
	assert.False(t, changed)
}
