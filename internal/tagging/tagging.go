// Package tagging writes audiobook metadata into audio file tags across
// the supported containers (MP3, M4A/M4B, FLAC, OGG/OPUS).
package tagging

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// Supported container extensions.
const (
	ExtMP3  = ".mp3"
	ExtM4A  = ".m4a"
	ExtM4B  = ".m4b"
	ExtMP4  = ".mp4"
	ExtFLAC = ".flac"
	ExtOGG  = ".ogg"
	ExtOPUS = ".opus"
)

// Tag is the flattened per-file tag set the writers understand. Audiobook
// conventions: Artist is the author, AlbumArtist repeats the author,
// Narrator goes to the composer field or a NARRATOR custom tag depending
// on container.
type Tag struct {
	Title       string
	Album       string
	Artist      string
	AlbumArtist string
	Narrator    string
	Genre       string
	Year        string
	Description string
	Series      string
	SeriesPart  string
	ISBN        string
	ASIN        string
	Language    string
	TrackNumber int
	TotalTracks int
	CoverArt    []byte
}

// Supported reports whether path has a container we can write tags to.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtM4A, ExtM4B, ExtMP4, ExtFLAC, ExtOGG, ExtOPUS:
		return true
	}
	return false
}

// Write writes the complete tag set to an audio file, replacing whatever
// tags the file carried. The file is modified in place.
func Write(path string, t *Tag) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtMP3:
		return writeMP3Tags(path, t)
	case ExtM4A, ExtM4B, ExtMP4:
		return writeM4ATags(path, t)
	case ExtFLAC:
		return writeFLACTags(path, t)
	case ExtOGG, ExtOPUS:
		return writeOggTags(path, t)
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

// WriteCover replaces only the embedded cover art, leaving all text tags
// untouched.
func WriteCover(path string, cover []byte) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if len(cover) == 0 {
		return fmt.Errorf("empty cover data")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtMP3:
		return writeMP3Cover(path, cover)
	case ExtM4A, ExtM4B, ExtMP4:
		return writeM4ACover(path, cover)
	case ExtFLAC:
		return writeFLACCover(path, cover)
	case ExtOGG, ExtOPUS:
		return writeOggCover(path, cover)
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

// BuildFileTags produces one Tag per audio file from resolved metadata,
// with track numbers following the given order. Multi-file books get the
// part number in the track title so players without track-number support
// still show the order.
func BuildFileTags(meta *domain.BookMetadata, fileCount int, cover []byte) []Tag {
	base := Tag{
		Album:       meta.AlbumTitle(),
		Artist:      meta.Author(),
		AlbumArtist: meta.Author(),
		Genre:       meta.Genre(),
		Year:        meta.PublishYear,
		Description: meta.Description,
		ISBN:        meta.ISBN,
		ASIN:        meta.ASIN,
		Language:    meta.Language,
		TotalTracks: fileCount,
		CoverArt:    cover,
	}
	if len(meta.Narrators) > 0 {
		base.Narrator = strings.Join(meta.Narrators, ", ")
	}
	if len(meta.Series) > 0 {
		base.Series = meta.Series[0].Name
		base.SeriesPart = meta.Series[0].Sequence
	}

	tags := make([]Tag, fileCount)
	for i := range tags {
		tags[i] = base
		tags[i].TrackNumber = i + 1
		if fileCount == 1 {
			tags[i].Title = meta.Title
		} else {
			tags[i].Title = fmt.Sprintf("%s (%d/%d)", meta.Title, i+1, fileCount)
		}
	}
	return tags
}

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

// detectMimeType detects the MIME type of image data, normalized to the
// two types tag containers care about.
func detectMimeType(data []byte) string {
	if len(data) == 0 {
		return mimeJPEG
	}
	switch http.DetectContentType(data) {
	case mimePNG:
		return mimePNG
	default:
		return mimeJPEG
	}
}
