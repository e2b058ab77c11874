package covers

import (
	"context"
	"log/slog"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
)

// Finder runs the cover cascade for one unit:
// local image files, then art embedded in the audio, then remote sources.
type Finder struct {
	sources    []Source
	downloader *Downloader
	rules      Rules
	logger     *slog.Logger
}

// NewFinder creates a cover finder over the given remote sources.
func NewFinder(sources []Source, downloader *Downloader, rules Rules, logger *slog.Logger) *Finder {
	return &Finder{
		sources:    sources,
		downloader: downloader,
		rules:      rules,
		logger:     logger,
	}
}

// Find returns the best cover for a unit. The first candidate passing
// validation wins. When nothing validates, the best non-ideal candidate
// seen is returned with Validated false: a wrong-sized cover beats no
// cover, and the report flags it.
//
// imagePaths are image files grouped with the unit; audioPaths are the
// unit's audio files in chapter order.
func (f *Finder) Find(ctx context.Context, q metadata.Query, imagePaths, audioPaths []string) (*domain.CoverAsset, error) {
	var fallback *domain.CoverAsset
	keepBest := func(asset *domain.CoverAsset) {
		if asset == nil {
			return
		}
		if fallback == nil || asset.MinDimension() > fallback.MinDimension() {
			fallback = asset
		}
	}

	for _, path := range imagePaths {
		asset, err := FromFile(path, f.rules)
		if err != nil {
			f.logger.Warn("unreadable local cover", "path", path, "error", err)
			continue
		}
		if asset == nil {
			continue
		}
		if asset.Validated {
			return asset, nil
		}
		keepBest(asset)
	}

	for _, path := range audioPaths {
		asset, err := FromEmbedded(path, f.rules)
		if err != nil {
			f.logger.Warn("embedded art extraction failed", "path", path, "error", err)
			continue
		}
		if asset == nil {
			continue
		}
		if asset.Validated {
			return asset, nil
		}
		keepBest(asset)
		// One embedded candidate is enough; tracks of a book share art.
		break
	}

	for _, src := range f.sources {
		asset := f.tryRemote(ctx, src, q)
		if asset == nil {
			continue
		}
		if asset.Validated {
			return asset, nil
		}
		keepBest(asset)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fallback != nil {
		f.logger.Warn("no cover passed validation, keeping best candidate",
			"origin", fallback.Origin,
			"width", fallback.Width,
			"height", fallback.Height,
		)
		return fallback, nil
	}
	return nil, errors.NotFound("no cover found")
}

// tryRemote asks one source for candidates and downloads the first usable
// one. Source failures are logged and swallowed; a cover is never worth
// failing the unit over.
func (f *Finder) tryRemote(ctx context.Context, src Source, q metadata.Query) *domain.CoverAsset {
	candidates, err := src.FindCovers(ctx, q)
	if err != nil {
		f.logger.Warn("cover source failed", "source", src.Name(), "error", err)
		return nil
	}

	var best *domain.CoverAsset
	for _, cand := range candidates {
		if !f.rules.CandidateLooksValid(cand) {
			continue
		}
		data, err := f.downloader.Fetch(ctx, cand.URL)
		if err != nil {
			f.logger.Debug("cover download failed", "source", src.Name(), "url", cand.URL, "error", err)
			continue
		}
		asset, ok := f.rules.Inspect(data, cand.Origin)
		if !ok {
			continue
		}
		if asset.Validated {
			return asset
		}
		if best == nil || asset.MinDimension() > best.MinDimension() {
			best = asset
		}
	}
	return best
}
