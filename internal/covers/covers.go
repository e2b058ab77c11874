// Package covers finds, validates, and prepares cover art. Candidates come
// from a cascade of sources (files next to the audio, art embedded in the
// audio itself, then remote search) and the first one passing validation
// wins.
package covers

import (
	"context"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
)

// Candidate is a remote cover image that has not been downloaded yet.
// Width/Height are zero when the source could not probe them.
type Candidate struct {
	URL    string
	Width  int
	Height int
	Origin domain.CoverOrigin
}

// Source searches one remote provider for cover candidates, best first.
type Source interface {
	Name() string
	FindCovers(ctx context.Context, q metadata.Query) ([]Candidate, error)
}
