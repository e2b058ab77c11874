package gemini

import (
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/normalize"
)

// ParseAnswer parses the model's line-oriented answer into metadata.
// Returns nil when the model answered UNKNOWN or produced no usable lines.
// Models wrap answers in markdown fences or prefix them with chatter often
// enough that parsing scans every line rather than trusting the shape.
func ParseAnswer(text string) *domain.BookMetadata {
	meta := &domain.BookMetadata{}
	sawField := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "`*"))
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "UNKNOWN") {
			return nil
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, "unknown") || strings.EqualFold(value, "n/a") {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			meta.Title = value
		case "author":
			meta.Authors = splitList(value)
		case "narrator":
			meta.Narrators = splitList(value)
		case "series":
			if len(meta.Series) == 0 {
				meta.Series = []domain.SeriesInfo{{Name: value}}
			} else {
				meta.Series[0].Name = value
			}
		case "sequence":
			if len(meta.Series) == 0 {
				meta.Series = []domain.SeriesInfo{{Sequence: value}}
			} else {
				meta.Series[0].Sequence = value
			}
		case "year":
			meta.PublishYear = value
		case "genre":
			meta.Genres = splitList(value)
		case "language":
			meta.Language = normalize.LanguageCode(value)
		default:
			continue
		}
		sawField = true
	}

	// A series entry with a sequence but no name is meaningless.
	if len(meta.Series) == 1 && meta.Series[0].Name == "" {
		meta.Series = nil
	}
	if !sawField {
		return nil
	}
	return meta
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
