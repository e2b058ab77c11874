package sidecar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
)

func sampleBook() *domain.BookMetadata {
	return &domain.BookMetadata{
		Title:       "The Final Empire",
		Authors:     []string{"Brandon Sanderson"},
		Narrators:   []string{"Michael Kramer"},
		Series:      []domain.SeriesInfo{{Name: "Mistborn", Sequence: "1"}},
		Genres:      []string{"Fantasy"},
		PublishYear: "2006",
		Language:    "en",
		Chapters: []domain.Chapter{
			{ID: 0, Title: "Chapter 1", Start: 0, End: 90 * time.Second},
			{ID: 1, Title: "Chapter 2", Start: 90 * time.Second, End: 200 * time.Second},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, FromBook(sampleBook())))

	doc, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "The Final Empire", doc.Title)
	assert.Equal(t, []string{"Mistborn #1"}, doc.Series)

	meta := doc.ToBook()
	assert.Equal(t, sampleBook(), meta)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSeriesEncoding(t *testing.T) {
	assert.Equal(t, "Mistborn #1", encodeSeries(domain.SeriesInfo{Name: "Mistborn", Sequence: "1"}))
	assert.Equal(t, "Mistborn", encodeSeries(domain.SeriesInfo{Name: "Mistborn"}))
	assert.Equal(t, domain.SeriesInfo{Name: "Mistborn", Sequence: "1"}, decodeSeries("Mistborn #1"))
	assert.Equal(t, domain.SeriesInfo{Name: "The #1 Series"}, decodeSeries("The #1 Series"))
}

func TestEmptySlicesNotNull(t *testing.T) {
	doc := FromBook(&domain.BookMetadata{Title: "T", Authors: []string{"A"}})
	data, err := doc.Marshal()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "[]", string(raw["narrators"]))
	assert.Equal(t, "[]", string(raw["genres"]))
	assert.Equal(t, "[]", string(raw["tags"]))
	assert.Equal(t, "[]", string(raw["chapters"]))
}

func TestMarker(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasMarker(dir))

	require.NoError(t, WriteMarker(dir))
	assert.True(t, HasMarker(dir))
	assert.False(t, MarkerTime(dir).IsZero())

	require.NoError(t, RemoveMarker(dir))
	assert.False(t, HasMarker(dir))
	require.NoError(t, RemoveMarker(dir), "removing an absent marker is fine")
}
