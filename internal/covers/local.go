package covers

import (
	"os"

	"github.com/dhowden/tag"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// FromFile loads a cover candidate from an image file next to the audio.
func FromFile(path string, rules Rules) (*domain.CoverAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	asset, ok := rules.Inspect(data, domain.CoverOriginLocal)
	if !ok {
		return nil, nil
	}
	return asset, nil
}

// FromEmbedded extracts art embedded in an audio file's tags. Returns nil
// with no error when the file carries no picture.
func FromEmbedded(audioPath string, rules Rules) (*domain.CoverAsset, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		// Not an error for the cascade; files without readable tags simply
		// contribute no candidate.
		return nil, nil
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, nil
	}

	asset, ok := rules.Inspect(pic.Data, domain.CoverOriginEmbedded)
	if !ok {
		return nil, nil
	}
	return asset, nil
}
