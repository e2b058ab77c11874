// Package sidecar reads and writes the metadata.json file placed in each
// book folder, in the audiobookshelf format so organized libraries import
// cleanly into a media server.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
)

// FileName is the sidecar file name inside a book folder.
const FileName = "metadata.json"

// Document is the on-disk sidecar shape. Field names and the
// "Series #Sequence" string encoding follow the audiobookshelf metadata
// file format.
type Document struct {
	Tags          []string  `json:"tags"`
	Chapters      []Chapter `json:"chapters"`
	Title         string    `json:"title"`
	Subtitle      string    `json:"subtitle,omitempty"`
	Authors       []string  `json:"authors"`
	Narrators     []string  `json:"narrators"`
	Series        []string  `json:"series"`
	Genres        []string  `json:"genres"`
	PublishedYear string    `json:"publishedYear,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	Description   string    `json:"description,omitempty"`
	ISBN          string    `json:"isbn,omitempty"`
	ASIN          string    `json:"asin,omitempty"`
	Language      string    `json:"language,omitempty"`
	Explicit      bool      `json:"explicit"`
	Abridged      bool      `json:"abridged"`

	// Organizer is run provenance. Media servers ignore unknown fields, so
	// carrying it in the same document is safe. Schema is additive-only.
	Organizer *Provenance `json:"organizer,omitempty"`
}

// Provenance records how a book folder was produced.
type Provenance struct {
	ProcessedAt   time.Time `json:"processedAt"`
	Source        string    `json:"source,omitempty"`
	CoverFound    bool      `json:"coverFound"`
	FileCount     int       `json:"fileCount"`
	TotalSize     int64     `json:"totalSize"`
	OriginalFiles []string  `json:"originalFiles,omitempty"`
}

// Chapter is a chapter marker with start/end in seconds.
type Chapter struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// FromBook converts resolved metadata into a sidecar document.
func FromBook(meta *domain.BookMetadata) *Document {
	doc := &Document{
		Tags:          []string{},
		Chapters:      []Chapter{},
		Title:         meta.Title,
		Subtitle:      meta.Subtitle,
		Authors:       orEmpty(meta.Authors),
		Narrators:     orEmpty(meta.Narrators),
		Series:        []string{},
		Genres:        orEmpty(meta.Genres),
		PublishedYear: meta.PublishYear,
		Publisher:     meta.Publisher,
		Description:   meta.Description,
		ISBN:          meta.ISBN,
		ASIN:          meta.ASIN,
		Language:      meta.Language,
		Explicit:      meta.Explicit,
		Abridged:      meta.Abridged,
	}
	for _, s := range meta.Series {
		doc.Series = append(doc.Series, encodeSeries(s))
	}
	for _, ch := range meta.Chapters {
		doc.Chapters = append(doc.Chapters, Chapter{
			ID:    ch.ID,
			Start: ch.Start.Seconds(),
			End:   ch.End.Seconds(),
			Title: ch.Title,
		})
	}
	return doc
}

// ToBook converts a sidecar document back into domain metadata.
func (d *Document) ToBook() *domain.BookMetadata {
	meta := &domain.BookMetadata{
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		Authors:     d.Authors,
		Narrators:   d.Narrators,
		Genres:      d.Genres,
		PublishYear: d.PublishedYear,
		Publisher:   d.Publisher,
		Description: d.Description,
		ISBN:        d.ISBN,
		ASIN:        d.ASIN,
		Language:    d.Language,
		Explicit:    d.Explicit,
		Abridged:    d.Abridged,
	}
	for _, s := range d.Series {
		meta.Series = append(meta.Series, decodeSeries(s))
	}
	for _, ch := range d.Chapters {
		meta.Chapters = append(meta.Chapters, domain.Chapter{
			ID:    ch.ID,
			Start: time.Duration(ch.Start * float64(time.Second)),
			End:   time.Duration(ch.End * float64(time.Second)),
			Title: ch.Title,
		})
	}
	return meta
}

// Marshal renders the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Load reads the sidecar from a book folder. Returns a not-found error
// when the folder has no sidecar.
func Load(dir string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("no %s in %s", FileName, dir)
		}
		return nil, errors.Wrapf(err, errors.CodeFilesystem, "reading %s", FileName)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, errors.CodeValidation, "parsing %s", FileName)
	}
	return &doc, nil
}

// Save writes the sidecar into a book folder.
func Save(dir string, doc *Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeFilesystem, "writing %s", FileName)
	}
	return nil
}

// encodeSeries renders series membership as "Name #Sequence".
func encodeSeries(s domain.SeriesInfo) string {
	if s.Sequence == "" {
		return s.Name
	}
	return s.Name + " #" + s.Sequence
}

// seriesRE matches a trailing " #<number>" sequence suffix. A "#" in the
// middle of a series name is not a sequence.
var seriesRE = regexp.MustCompile(`^(.+) #([\d.]+)$`)

// decodeSeries parses "Name #Sequence" back into its parts.
func decodeSeries(s string) domain.SeriesInfo {
	if m := seriesRE.FindStringSubmatch(s); m != nil {
		return domain.SeriesInfo{Name: m[1], Sequence: m[2]}
	}
	return domain.SeriesInfo{Name: s}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
