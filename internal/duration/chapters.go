package duration

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// Filename shapes that carry a usable chapter title.
var chapterTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+\s*[-._]\s*(.+)$`),            // "01 - Title"
	regexp.MustCompile(`(?i)^chapter\s*\d+\s*[-._]?\s*(.*)$`), // "Chapter 02 - Title"
	regexp.MustCompile(`(?i)^track\s*\d+\s*[-._]?\s*(.*)$`),   // "Track03"
	regexp.MustCompile(`(?i)^part\s*\d+\s*[-._]?\s*(.*)$`),    // "Part 1"
	regexp.MustCompile(`^\d+\s+(.+)$`),                    // "01 Title"
}

// Synthesize builds chapter markers for a multi-file book, one chapter per
// file, with start offsets accumulated from probed durations. Returns nil
// when any member's duration is unknown: a chapter list with wrong offsets
// is worse than none.
func Synthesize(paths []string) []domain.Chapter {
	if len(paths) < 2 {
		return nil
	}

	chapters := make([]domain.Chapter, 0, len(paths))
	var cursor time.Duration
	for i, path := range paths {
		d := Probe(path)
		if d <= 0 {
			return nil
		}
		chapters = append(chapters, domain.Chapter{
			ID:    i + 1,
			Title: chapterTitle(path, i+1),
			Start: cursor,
			End:   cursor + d,
		})
		cursor += d
	}
	return chapters
}

// chapterTitle derives a chapter title from the file name, falling back to
// a numbered "Chapter N".
func chapterTitle(path string, n int) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, re := range chapterTitlePatterns {
		if m := re.FindStringSubmatch(stem); m != nil {
			if title := strings.TrimSpace(m[1]); title != "" {
				return title
			}
			break
		}
	}
	return "Chapter " + strconv.Itoa(n)
}
