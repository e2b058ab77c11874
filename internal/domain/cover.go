package domain

// CoverOrigin identifies where a cover candidate came from.
type CoverOrigin string

// Cover origins, in cascade order.
const (
	CoverOriginLocal    CoverOrigin = "local"
	CoverOriginEmbedded CoverOrigin = "embedded"
	CoverOriginITunes   CoverOrigin = "itunes"
	CoverOriginSearch   CoverOrigin = "search"
)

// CoverAsset is a cover art candidate. Validated means the image is square
// within the configured tolerance and min(width, height) meets the
// resolution threshold; an asset that fails validation is replaced when the
// active mode requires validation, never silently kept as-is.
type CoverAsset struct {
	Data      []byte
	Width     int
	Height    int
	Origin    CoverOrigin
	Validated bool
}

// Square reports whether the image is square within tolerance pixels.
func (c *CoverAsset) Square(tolerance int) bool {
	d := c.Width - c.Height
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// MinDimension returns the smaller of width and height.
func (c *CoverAsset) MinDimension() int {
	if c.Width < c.Height {
		return c.Width
	}
	return c.Height
}
