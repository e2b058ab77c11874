package scan

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClassifier() *Classifier {
	return NewClassifier(
		[]string{".mp3", ".m4b", ".m4a", ".flac", ".ogg", ".opus"},
		[]string{".jpg", ".jpeg", ".png", ".webp"},
	)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestClassify(t *testing.T) {
	c := testClassifier()
	assert.Equal(t, domain.FileKindAudio, c.Classify("book.MP3"))
	assert.Equal(t, domain.FileKindAudio, c.Classify("book.m4b"))
	assert.Equal(t, domain.FileKindImage, c.Classify("cover.JPG"))
	assert.Equal(t, domain.FileKindIgnored, c.Classify("notes.txt"))
	assert.Equal(t, domain.FileKindIgnored, c.Classify("noext"))
}

func TestClassifierExtsWithoutDot(t *testing.T) {
	c := NewClassifier([]string{"mp3"}, []string{"jpg"})
	assert.Equal(t, domain.FileKindAudio, c.Classify("a.mp3"))
	assert.Equal(t, domain.FileKindImage, c.Classify("b.jpg"))
}

func TestIsDiscDir(t *testing.T) {
	assert.True(t, IsDiscDir("CD1"))
	assert.True(t, IsDiscDir("cd 02"))
	assert.True(t, IsDiscDir("Disc 3"))
	assert.True(t, IsDiscDir("disk1"))
	assert.False(t, IsDiscDir("Discworld"))
	assert.False(t, IsDiscDir("cd"))
	assert.False(t, IsDiscDir("The CD Collection"))
}

func TestScanSplitsLooseAndFolders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Loose Book Part 1.mp3"))
	writeFile(t, filepath.Join(dir, "Loose Book Part 2.mp3"))
	writeFile(t, filepath.Join(dir, "cover.jpg"))
	writeFile(t, filepath.Join(dir, "readme.txt"))
	writeFile(t, filepath.Join(dir, ".hidden.mp3"))
	writeFile(t, filepath.Join(dir, "My Book", "01.mp3"))
	writeFile(t, filepath.Join(dir, "My Book", "folder.jpg"))
	writeFile(t, filepath.Join(dir, "Empty Folder", "notes.txt"))

	s := NewScanner(testClassifier(), testLogger())
	snap, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, snap.Loose, 3)
	assert.Equal(t, "Loose Book Part 1.mp3", snap.Loose[0].Name)
	assert.Equal(t, domain.FileKindImage, snap.Loose[2].Kind)

	// Folder with only a .txt inside is dropped.
	require.Len(t, snap.Folders, 1)
	assert.Equal(t, "My Book", snap.Folders[0].Name)
	require.Len(t, snap.Folders[0].Files, 2)
}

func TestScanFolderIncludesDiscSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Dune", "CD1", "01.mp3"))
	writeFile(t, filepath.Join(dir, "Dune", "CD2", "01.mp3"))
	writeFile(t, filepath.Join(dir, "Dune", "Extras", "bonus.mp3"))

	s := NewScanner(testClassifier(), testLogger())
	snap, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, snap.Folders, 1)
	// Disc dirs are flattened in; non-disc subdirs are not descended into.
	assert.Len(t, snap.Folders[0].Files, 2)
}

func TestScanMissingSourceDir(t *testing.T) {
	s := NewScanner(testClassifier(), testLogger())
	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestScanCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(testClassifier(), testLogger())
	_, err := s.Scan(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkStreamsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b", "deep.mp3"))
	writeFile(t, filepath.Join(dir, "top.mp3"))

	w := NewWalker(testLogger())
	var paths []string
	for res := range w.Walk(context.Background(), dir) {
		paths = append(paths, res.RelPath)
	}
	assert.ElementsMatch(t, []string{filepath.Join("a", "b", "deep.mp3"), "top.mp3"}, paths)
}
