package tagging

import (
	"fmt"
	"strconv"

	"go.senan.xyz/taglib"
)

// writeOggTags writes Vorbis comments to an OGG/OPUS file using TagLib.
func writeOggTags(path string, t *Tag) error {
	tags := make(map[string][]string)
	add := func(key, value string) {
		if value != "" {
			tags[key] = []string{value}
		}
	}

	add(taglib.Artist, t.Artist)
	add(taglib.AlbumArtist, t.AlbumArtist)
	add(taglib.Album, t.Album)
	add(taglib.Title, t.Title)
	add(taglib.Genre, t.Genre)
	add(taglib.Date, t.Year)
	add(taglib.TrackNumber, strconv.Itoa(t.TrackNumber))
	if t.TotalTracks > 0 {
		add("TOTALTRACKS", strconv.Itoa(t.TotalTracks))
	}
	add("DESCRIPTION", t.Description)
	add("NARRATOR", t.Narrator)
	add("COMPOSER", t.Narrator)
	add("SERIES", t.Series)
	add("SERIES-PART", t.SeriesPart)
	add("ISBN", t.ISBN)
	add("ASIN", t.ASIN)
	add("LANGUAGE", t.Language)

	// Clear removes existing tags not present in the map.
	if err := taglib.WriteTags(path, tags, taglib.Clear); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}

	if len(t.CoverArt) > 0 {
		if err := taglib.WriteImage(path, t.CoverArt); err != nil {
			return fmt.Errorf("write cover art: %w", err)
		}
	}
	return nil
}

// writeOggCover replaces only the embedded image.
func writeOggCover(path string, cover []byte) error {
	if err := taglib.WriteImage(path, cover); err != nil {
		return fmt.Errorf("write cover art: %w", err)
	}
	return nil
}
