package covers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/errors"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	downloadTimeout = 30 * time.Second
)

// Downloader fetches cover images over HTTP.
type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDownloader creates a cover downloader.
func NewDownloader(logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     logger,
	}
}

// Fetch downloads a cover candidate and returns the raw image bytes.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.Validation("empty cover URL")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransient, "download cover")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Transientf("cover download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransient, "read cover data")
	}
	if len(data) == 0 {
		return nil, errors.Validation("empty cover response")
	}

	d.logger.Debug("downloaded cover", "url", url, "bytes", len(data))
	return data, nil
}
