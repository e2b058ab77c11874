package covers

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
)

const jpegQuality = 90

// PrepareForEmbedding downscales an asset so its longest side does not
// exceed maxDimension and re-encodes it as JPEG. Tag embedding balloons
// file sizes when players duplicate a huge cover into every track, so the
// embedded copy is capped; the full-resolution original still lands in the
// book folder as cover.jpg.
func PrepareForEmbedding(asset *domain.CoverAsset, maxDimension int) ([]byte, error) {
	if asset.Width <= maxDimension && asset.Height <= maxDimension {
		if isJPEG(asset.Data) {
			return asset.Data, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "decode cover for embedding")
	}

	if asset.Width > maxDimension || asset.Height > maxDimension {
		if asset.Width >= asset.Height {
			img = resize.Resize(uint(maxDimension), 0, img, resize.Lanczos3)
		} else {
			img = resize.Resize(0, uint(maxDimension), img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "encode cover for embedding")
	}
	return buf.Bytes(), nil
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}
