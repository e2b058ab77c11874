// Package inventory renders a pipe-delimited listing of the library tree,
// one row per book, for spreadsheets and shell tooling. Rows are built from
// the sidecar documents; folder names fill in when a book has none.
package inventory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/listenupapp/listenup-organizer/internal/pipeline"
	"github.com/listenupapp/listenup-organizer/internal/scan"
	"github.com/listenupapp/listenup-organizer/internal/sidecar"
)

// Entry is one inventory row.
type Entry struct {
	Title      string
	Author     string
	Genre      string
	Series     string
	Year       string
	Synopsis   string
	Path       string
	Processed  string
	FileCount  int
	Size       int64
	CoverFound bool
}

// Build assembles inventory entries from enumerated book folders. The size
// column is the folder's full on-disk footprint, cover and sidecar
// included, gathered through the recursive walker.
func Build(ctx context.Context, walker *scan.Walker, books []pipeline.BookFolder) []Entry {
	entries := make([]Entry, 0, len(books))
	for _, book := range books {
		entry := Entry{
			Author:    book.Author,
			Title:     book.Title,
			FileCount: len(book.AudioFiles),
			Path:      book.Path,
		}
		for res := range walker.Walk(ctx, book.Path) {
			entry.Size += res.Size
		}
		if book.HasSidecar {
			if doc, err := sidecar.Load(book.Path); err == nil {
				fillFromSidecar(&entry, doc)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func fillFromSidecar(entry *Entry, doc *sidecar.Document) {
	meta := doc.ToBook()
	if meta.Author() != "" {
		entry.Author = meta.Author()
	}
	if meta.Title != "" {
		entry.Title = meta.Title
	}
	entry.Genre = meta.Genre()
	entry.Series = meta.SeriesName()
	entry.Year = meta.PublishYear
	entry.Synopsis = meta.Description

	// Size stays the measured folder footprint; the provenance total only
	// reflects the audio files at organize time.
	if p := doc.Organizer; p != nil {
		entry.Processed = p.ProcessedAt.Format("2006-01-02")
		entry.CoverFound = p.CoverFound
	}
}

// Write renders entries as pipe-delimited rows with a header line.
func Write(w io.Writer, entries []Entry) error {
	if _, err := fmt.Fprintln(w, "title|author|genre|series|year|synopsis|path|processed|files|size|cover"); err != nil {
		return err
	}
	for _, e := range entries {
		row := strings.Join([]string{
			cell(e.Title),
			cell(e.Author),
			cell(e.Genre),
			cell(e.Series),
			cell(e.Year),
			cell(e.Synopsis),
			cell(e.Path),
			e.Processed,
			fmt.Sprintf("%d", e.FileCount),
			humanize.Bytes(uint64(e.Size)),
			fmt.Sprintf("%t", e.CoverFound),
		}, "|")
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return nil
}

// cell sanitizes a value so rows stay parseable: pipes become slashes,
// newlines become spaces.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
