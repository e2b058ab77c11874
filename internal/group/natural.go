package group

import (
	"sort"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// sortNatural orders files so "Part 2" sorts before "Part 10". Chapter
// order in players follows this order, so plain lexicographic sorting is
// not good enough.
func sortNatural(files []domain.RawFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return NaturalLess(files[i].Name, files[j].Name)
	})
}

// SortFileNames natural-sorts a slice of names in place.
func SortFileNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return NaturalLess(names[i], names[j]) })
}

// NaturalLess compares two strings treating digit runs as numbers.
// Comparison is case-insensitive on the non-digit segments.
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		aNum, aRest, aIsNum := cutSegment(a)
		bNum, bRest, bIsNum := cutSegment(b)

		if aIsNum && bIsNum {
			an := trimLeadingZeros(aNum)
			bn := trimLeadingZeros(bNum)
			if len(an) != len(bn) {
				return len(an) < len(bn)
			}
			if an != bn {
				return an < bn
			}
		} else {
			as := strings.ToLower(aNum)
			bs := strings.ToLower(bNum)
			if as != bs {
				return as < bs
			}
		}
		a, b = aRest, bRest
	}
	return len(a) < len(b)
}

// cutSegment splits off the leading run of digits or non-digits.
func cutSegment(s string) (seg, rest string, isNum bool) {
	isNum = s[0] >= '0' && s[0] <= '9'
	for i := 0; i < len(s); i++ {
		d := s[i] >= '0' && s[i] <= '9'
		if d != isNum {
			return s[:i], s[i:], isNum
		}
	}
	return s, "", isNum
}

func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
