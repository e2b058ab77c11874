package domain

import (
	"strings"
	"time"
)

// BookMetadata is the resolved metadata for an audiobook. Field layout
// follows the audiobookshelf sidecar format so a library written by the
// organizer imports cleanly into the server.
type BookMetadata struct {
	Title       string
	Subtitle    string
	Authors     []string
	Narrators   []string
	Series      []SeriesInfo
	Genres      []string
	PublishYear string
	Description string
	Publisher   string
	ISBN        string
	ASIN        string
	Language    string
	Chapters    []Chapter
	Explicit    bool
	Abridged    bool
}

// SeriesInfo represents series membership with an optional sequence number.
type SeriesInfo struct {
	Name     string
	Sequence string
}

// Chapter represents a chapter marker synthesized from file durations.
type Chapter struct {
	Title string
	ID    int
	Start time.Duration
	End   time.Duration
}

// Author returns the primary author, or empty when none is known.
func (m *BookMetadata) Author() string {
	if len(m.Authors) == 0 {
		return ""
	}
	return m.Authors[0]
}

// Genre returns the primary genre, or empty when none is known.
func (m *BookMetadata) Genre() string {
	if len(m.Genres) == 0 {
		return ""
	}
	return m.Genres[0]
}

// SeriesName returns the primary series name, or empty when none is known.
func (m *BookMetadata) SeriesName() string {
	if len(m.Series) == 0 {
		return ""
	}
	return m.Series[0].Name
}

// Classifiable reports whether the metadata is sufficient to place the book
// at Author/Title. Units that are not classifiable go to the unclassified
// bucket.
func (m *BookMetadata) Classifiable() bool {
	return strings.TrimSpace(m.Title) != "" && strings.TrimSpace(m.Author()) != ""
}

// AlbumTitle is the album tag value: "Series - Title" when the book belongs
// to a series, otherwise just the title.
func (m *BookMetadata) AlbumTitle() string {
	if s := m.SeriesName(); s != "" {
		return s + " - " + m.Title
	}
	return m.Title
}

