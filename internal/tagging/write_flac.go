package tagging

import (
	"fmt"
	"strconv"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// writeFLACTags writes Vorbis comments and a picture block to a FLAC file.
func writeFLACTags(path string, t *Tag) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	// Find the existing VORBIS_COMMENT block index, if any.
	cmtIdx := -1
	for i, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			cmtIdx = i
			break
		}
	}

	// Always build a fresh comment block to avoid duplicate tags.
	cmts := flacvorbis.New()
	add := func(key, value string) error {
		if value == "" {
			return nil
		}
		return cmts.Add(key, value)
	}

	pairs := []struct{ key, value string }{
		{"ARTIST", t.Artist},
		{"ALBUMARTIST", t.AlbumArtist},
		{"ALBUM", t.Album},
		{"TITLE", t.Title},
		{"GENRE", t.Genre},
		{"DATE", t.Year},
		{"DESCRIPTION", t.Description},
		{"NARRATOR", t.Narrator},
		{"COMPOSER", t.Narrator},
		{"SERIES", t.Series},
		{"SERIES-PART", t.SeriesPart},
		{"ISBN", t.ISBN},
		{"ASIN", t.ASIN},
		{"LANGUAGE", t.Language},
		{"TRACKNUMBER", strconv.Itoa(t.TrackNumber)},
	}
	for _, p := range pairs {
		if err := add(p.key, p.value); err != nil {
			return fmt.Errorf("add %s: %w", p.key, err)
		}
	}
	if t.TotalTracks > 0 {
		if err := cmts.Add("TOTALTRACKS", strconv.Itoa(t.TotalTracks)); err != nil {
			return fmt.Errorf("add TOTALTRACKS: %w", err)
		}
	}

	cmtBlock := cmts.Marshal()
	if cmtIdx >= 0 {
		f.Meta[cmtIdx] = &cmtBlock
	} else {
		f.Meta = append(f.Meta, &cmtBlock)
	}

	if len(t.CoverArt) > 0 {
		if err := replaceFLACPicture(f, t.CoverArt); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

// writeFLACCover replaces only the picture block.
func writeFLACCover(path string, cover []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}
	if err := replaceFLACPicture(f, cover); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

func replaceFLACPicture(f *flac.File, cover []byte) error {
	newMeta := make([]*flac.MetaDataBlock, 0, len(f.Meta))
	for _, meta := range f.Meta {
		if meta.Type != flac.Picture {
			newMeta = append(newMeta, meta)
		}
	}
	f.Meta = newMeta

	pic, err := flacpicture.NewFromImageData(
		flacpicture.PictureTypeFrontCover,
		"Front Cover",
		cover,
		detectMimeType(cover),
	)
	if err != nil {
		return fmt.Errorf("create picture: %w", err)
	}
	picBlock := pic.Marshal()
	f.Meta = append(f.Meta, &picBlock)
	return nil
}
