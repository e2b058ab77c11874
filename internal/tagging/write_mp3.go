package tagging

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

const id3Magic = "ID3"

// writeMP3Tags writes ID3v2.4 tags to an MP3 file.
func writeMP3Tags(path string, t *Tag) error {
	tag, err := openMP3(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	// ID3v2.4 with UTF-8 for full Unicode titles.
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	// Clear existing frames to avoid duplicates.
	tag.DeleteAllFrames()

	tag.SetArtist(t.Artist)
	tag.SetAlbum(t.Album)
	tag.SetTitle(t.Title)
	tag.SetGenre(t.Genre)

	if t.Year != "" {
		tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, t.Year)
	}

	trackStr := strconv.Itoa(t.TrackNumber)
	if t.TotalTracks > 0 {
		trackStr += "/" + strconv.Itoa(t.TotalTracks)
	}
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trackStr)

	if t.AlbumArtist != "" {
		tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, t.AlbumArtist)
	}

	// Narrator in the composer frame is the common audiobook convention.
	if t.Narrator != "" {
		tag.AddTextFrame("TCOM", id3v2.EncodingUTF8, t.Narrator)
	}
	if t.Language != "" {
		tag.AddTextFrame("TLAN", id3v2.EncodingUTF8, t.Language)
	}

	if t.Description != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     t.Description,
		})
	}

	addTXXXFrame(tag, "SERIES", t.Series)
	addTXXXFrame(tag, "SERIES-PART", t.SeriesPart)
	addTXXXFrame(tag, "ISBN", t.ISBN)
	addTXXXFrame(tag, "ASIN", t.ASIN)

	if len(t.CoverArt) > 0 {
		tag.AddAttachedPicture(pictureFrame(t.CoverArt))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}

// writeMP3Cover replaces only the attached picture frames.
func writeMP3Cover(path string, cover []byte) error {
	tag, err := openMP3(path)
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(pictureFrame(cover))

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save cover: %w", err)
	}
	return nil
}

func pictureFrame(cover []byte) id3v2.PictureFrame {
	return id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    detectMimeType(cover),
		PictureType: id3v2.PTFrontCover,
		Description: "Front Cover",
		Picture:     cover,
	}
}

func openMP3(path string) (*id3v2.Tag, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		// ID3v2.2 or older tags - strip them and retry.
		if stripErr := stripID3v2Tag(path); stripErr != nil {
			return nil, fmt.Errorf("strip unsupported ID3v2.2 tag: %w", stripErr)
		}
		tag, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return tag, nil
}

// addTXXXFrame adds a TXXX (user-defined text) frame if the value is non-empty.
func addTXXXFrame(tag *id3v2.Tag, description, value string) {
	if value == "" {
		return
	}
	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

// stripID3v2Tag removes ID3v2 tags from an MP3 file. Used to handle
// ID3v2.2 tags which the id3v2 library does not support.
func stripID3v2Tag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil // No ID3v2 tag to strip
	}

	// Tag size from bytes 6-9 (synchsafe integer: 7 bits per byte).
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	tagSize := size + 10

	// Footer flag (bit 4 of flags byte) - ID3v2.4 only.
	if data[5]&0x10 != 0 {
		tagSize += 10
	}

	if tagSize >= len(data) {
		return fmt.Errorf("ID3v2 tag size (%d) exceeds file size (%d)", tagSize, len(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if err := os.WriteFile(path, data[tagSize:], info.Mode()); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
