package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeSortsByPathThenGroupKey(t *testing.T) {
	r := RunReport{
		Units: []UnitResult{
			{GroupKey: "zebra book", Status: StatusUnclassified},
			{GroupKey: "b", Status: StatusOrganized, Path: "Lib/B Author/B Title"},
			{GroupKey: "a", Status: StatusOrganized, Path: "Lib/A Author/A Title"},
			{GroupKey: "alpha book", Status: StatusFailed},
		},
	}
	r.Finalize()

	assert.Equal(t, "Lib/A Author/A Title", r.Units[0].Path)
	assert.Equal(t, "Lib/B Author/B Title", r.Units[1].Path)
	// Pathless units sort last, ordered by group key.
	assert.Equal(t, "alpha book", r.Units[2].GroupKey)
	assert.Equal(t, "zebra book", r.Units[3].GroupKey)
}

func TestFinalizeComputesSummary(t *testing.T) {
	r := RunReport{
		Units: []UnitResult{
			{Status: StatusOrganized},
			{Status: StatusOrganized},
			{Status: StatusCoverMissing},
			{Status: StatusUnclassified},
			{Status: StatusFailed},
		},
	}
	r.Finalize()

	assert.Equal(t, RunSummary{Organized: 2, Unclassified: 1, Failed: 1, CoverMissing: 1}, r.Summary)
}

func TestFinalizeNormalizesTimesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	r := RunReport{
		StartedAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, loc),
		FinishedAt: time.Date(2025, 3, 1, 11, 0, 0, 0, loc),
	}
	r.Finalize()

	assert.Equal(t, time.UTC, r.StartedAt.Location())
	assert.Equal(t, time.UTC, r.FinishedAt.Location())
}

func TestClassifiable(t *testing.T) {
	m := BookMetadata{Title: "Dune", Authors: []string{"Frank Herbert"}}
	assert.True(t, m.Classifiable())

	assert.False(t, (&BookMetadata{Title: "Dune"}).Classifiable())
	assert.False(t, (&BookMetadata{Authors: []string{"Frank Herbert"}}).Classifiable())
	assert.False(t, (&BookMetadata{Title: "  ", Authors: []string{"x"}}).Classifiable())
}

func TestAlbumTitle(t *testing.T) {
	m := BookMetadata{Title: "Dune", Series: []SeriesInfo{{Name: "Dune Chronicles"}}}
	assert.Equal(t, "Dune Chronicles - Dune", m.AlbumTitle())

	m.Series = nil
	assert.Equal(t, "Dune", m.AlbumTitle())
}

