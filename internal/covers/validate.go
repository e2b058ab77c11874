package covers

import (
	"bytes"
	"image"

	// Register decoders for the formats covers arrive in.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// Rules are the quality gate for cover art.
type Rules struct {
	// MinResolution is the minimum for min(width, height).
	MinResolution int
	// SquareTolerance is the allowed |width-height| in pixels.
	SquareTolerance int
}

// Inspect decodes the image header and fills in dimensions, returning a
// cover asset with Validated set per the rules. Undecodable data returns
// false.
func (r Rules) Inspect(data []byte, origin domain.CoverOrigin) (*domain.CoverAsset, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	asset := &domain.CoverAsset{
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Origin: origin,
	}
	asset.Validated = r.Valid(asset)
	return asset, true
}

// Valid applies the rules to an asset whose dimensions are already known.
func (r Rules) Valid(asset *domain.CoverAsset) bool {
	return asset.Square(r.SquareTolerance) && asset.MinDimension() >= r.MinResolution
}

// CandidateLooksValid pre-filters a remote candidate on its advertised
// dimensions so obviously undersized images are not downloaded at all.
// Candidates with unknown dimensions pass; the real check happens after
// download.
func (r Rules) CandidateLooksValid(c Candidate) bool {
	if c.Width == 0 || c.Height == 0 {
		return true
	}
	probe := &domain.CoverAsset{Width: c.Width, Height: c.Height}
	return r.Valid(probe)
}
