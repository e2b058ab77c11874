// Package nameparse extracts candidate author/title pairs from audiobook
// file and folder names.
package nameparse

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Part/sequence markers stripped from names before grouping or parsing.
// Bilingual (English/Spanish) because mixed libraries are the norm in the
// source material this tool grew up on.
var partPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[\s_-]+(part|parte)s?\s*\d+`),
	regexp.MustCompile(`(?i)[\s_-]+(chapter|capitulo|cap)s?\s*\d+`),
	regexp.MustCompile(`(?i)[\s_-]+(cd|disc|disco)s?\s*\d+`),
	regexp.MustCompile(`[\s_-]+\d+$`),
	regexp.MustCompile(`\s*\(\d+\)$`),
}

var (
	bracketRE    = regexp.MustCompile(`[\[({][^])}]*[])}]`)
	multiSpaceRE = regexp.MustCompile(`\s+`)
	// Characters that cannot appear in library folder names.
	unsafePathRE = regexp.MustCompile(`[\\/*?<>|":]`)
)

// A cases.Caser carries internal state, so each call site builds a fresh one.
func newTitleCaser() cases.Caser { return cases.Title(language.Und) }

// Candidate is one ranked (author, title) guess.
type Candidate struct {
	Author string
	Title  string
	// KnownAuthor is true when Author matched the external authors list;
	// such candidates outrank purely positional guesses.
	KnownAuthor bool
}

// Result is the outcome of parsing one name. Insufficient is an explicit
// non-error outcome: fewer than two non-junk tokens remained, so the name
// cannot be classified from structure alone.
type Result struct {
	Candidates   []Candidate
	Cleaned      string
	TokenCount   int
	Insufficient bool
	Reason       string
}

// Best returns the top-ranked candidate, or false when there is none.
func (r Result) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Parser parses names using a configurable junk-word list and an optional
// known-authors list. Immutable after construction.
type Parser struct {
	junk    map[string]struct{}
	authors map[string]string // folded form -> display form
}

// New creates a parser. junkWords are matched case-insensitively as whole
// words; knownAuthors may be nil.
func New(junkWords, knownAuthors []string) *Parser {
	p := &Parser{
		junk:    make(map[string]struct{}, len(junkWords)),
		authors: make(map[string]string, len(knownAuthors)),
	}
	for _, w := range junkWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			p.junk[w] = struct{}{}
		}
	}
	for _, a := range knownAuthors {
		a = strings.TrimSpace(a)
		if a != "" {
			p.authors[Fold(a)] = TitleCase(a)
		}
	}
	return p
}

// LoadAuthors reads a known-authors file, one name per line. A missing file
// is not an error; the parser simply has no author list.
func LoadAuthors(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var authors []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			authors = append(authors, line)
		}
	}
	return authors, scanner.Err()
}

// AppendAuthors adds names that are not already in the authors file,
// deduplicated case-insensitively, and reports how many were written.
// A rename would lose concurrent edits, so the file is appended in place.
func AppendAuthors(path string, names []string) (int, error) {
	if path == "" || len(names) == 0 {
		return 0, nil
	}
	existing, err := LoadAuthors(path)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[Fold(a)] = true
	}

	var fresh []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[Fold(name)] {
			continue
		}
		seen[Fold(name)] = true
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	for _, name := range fresh {
		if _, err := f.WriteString(name + "\n"); err != nil {
			f.Close()
			return 0, err
		}
	}
	return len(fresh), f.Close()
}

// GroupKey computes the stable grouping key for a filename: extension
// stripped, separators normalized to spaces, part/sequence markers removed,
// folded lower-case. Files sharing a key belong to one book unit.
func GroupKey(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	base := StripPartMarkers(stem)
	return Fold(base)
}

// StripPartMarkers removes part/chapter/disc numerals and trailing sequence
// numbers from a name stem, returning the cleaned, space-normalized form.
// Falls back to the normalized input when stripping would leave nothing.
func StripPartMarkers(stem string) string {
	cleaned := normalizeSeparators(stem)
	for _, re := range partPatterns {
		cleaned = strings.TrimSpace(re.ReplaceAllString(cleaned, ""))
	}
	cleaned = strings.TrimSpace(multiSpaceRE.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return strings.TrimSpace(normalizeSeparators(stem))
	}
	return cleaned
}

// Parse extracts ranked author/title candidates from a file or folder name.
func (p *Parser) Parse(name string) Result {
	// Strip extension only when it looks like one; folder names with dots
	// stay intact.
	if ext := filepath.Ext(name); len(ext) > 1 && len(ext) <= 6 && !strings.ContainsAny(ext, " ") {
		name = strings.TrimSuffix(name, ext)
	}

	cleaned := StripPartMarkers(name)
	cleaned = bracketRE.ReplaceAllString(cleaned, " ")
	cleaned = p.stripJunk(cleaned)
	cleaned = strings.TrimSpace(multiSpaceRE.ReplaceAllString(cleaned, " "))

	res := Result{Cleaned: cleaned}
	res.TokenCount = len(strings.Fields(cleaned))
	if res.TokenCount < 2 {
		res.Insufficient = true
		res.Reason = "fewer than two non-junk tokens remain"
		return res
	}

	res.Candidates = p.candidates(cleaned)
	return res
}

// candidates derives ranked (author, title) pairs from a cleaned name.
// Ranking: known-author matches first, then "Title by Author", then
// positional splits on "-", finally the whole string as a bare title.
func (p *Parser) candidates(cleaned string) []Candidate {
	var known, guesses []Candidate

	add := func(author, title string) {
		author = TitleCase(strings.TrimSpace(author))
		title = TitleCase(strings.TrimSpace(title))
		if title == "" {
			return
		}
		c := Candidate{Author: author, Title: title}
		if author != "" {
			if display, ok := p.authors[Fold(author)]; ok {
				c.Author = display
				c.KnownAuthor = true
				known = append(known, c)
				return
			}
		}
		guesses = append(guesses, c)
	}

	// "Title by Author" (also Spanish "por").
	for _, sep := range []string{" by ", " por "} {
		if idx := indexFold(cleaned, sep); idx >= 0 {
			add(cleaned[idx+len(sep):], cleaned[:idx])
		}
	}

	// "A - B": either order is plausible; emit both so a known-author match
	// on either side can take over.
	if parts := strings.SplitN(cleaned, " - ", 2); len(parts) == 2 {
		add(parts[0], parts[1])
		add(parts[1], parts[0])
	}

	// Bare title, author unknown.
	add("", cleaned)

	return append(known, guesses...)
}

// stripJunk removes configured junk words as whole words, case-insensitive.
func (p *Parser) stripJunk(s string) string {
	if len(p.junk) == 0 {
		return s
	}
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		probe := strings.ToLower(strings.Trim(f, ".,;:!"))
		if _, isJunk := p.junk[probe]; !isJunk {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// TitleCase normalizes a field to Title Case with collapsed whitespace.
func TitleCase(s string) string {
	s = strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}
	return newTitleCaser().String(strings.ToLower(s))
}

// SafeFolderName renders a metadata field usable as a library folder name.
func SafeFolderName(s string) string {
	s = unsafePathRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
	return s
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases and strips diacritics so "Pérez-Reverte" matches
// "perez reverte".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-':
			return ' '
		}
		return r
	}, folded)
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(folded, " "))
}

// normalizeSeparators replaces underscores and dashes with spaces and
// collapses runs of whitespace, preserving case.
func normalizeSeparators(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '_':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
}

// indexFold finds sep in s case-insensitively, returning the byte index
// into s itself. Lowercasing can change byte lengths (Kelvin sign, dotted
// I), so the comparison walks s rune by rune instead of indexing into a
// lowered copy.
func indexFold(s, sep string) int {
	if sep == "" {
		return 0
	}
	sepRunes := utf8.RuneCountInString(sep)
	for i := range s {
		end := i
		for n := 0; n < sepRunes; n++ {
			_, size := utf8.DecodeRuneInString(s[end:])
			if size == 0 {
				return -1
			}
			end += size
		}
		if strings.EqualFold(s[i:end], sep) {
			return i
		}
	}
	return -1
}
