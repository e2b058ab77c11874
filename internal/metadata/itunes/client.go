// Package itunes searches the iTunes Search API for audiobook cover art.
package itunes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client provides access to the iTunes Search API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates an iTunes client.
// Rate limited to 20 requests per minute as recommended by Apple.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		// 20 requests per minute = 1 request per 3 seconds, burst of 5
		rateLimiter: rate.NewLimiter(rate.Every(3*time.Second), 5),
		logger:      logger,
	}
}

// Name identifies this source in logs and reports.
func (c *Client) Name() string { return "itunes" }

// wait blocks until the rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}
