// Package gsearch finds cover art through the Google Custom Search image
// API. It is the last resort in the cover cascade: results are noisy, so
// candidates are ordered to put plausible covers first and the finder's
// validation does the rest.
package gsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
)

const (
	searchBaseURL = "https://www.googleapis.com/customsearch/v1"
	defaultLimit  = 10
)

// Client provides access to the Custom Search API. Requires an API key and
// a search engine ID; without both the pipeline disables this source.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	apiKey      string
	engineID    string
	logger      *slog.Logger
}

// NewClient creates a Custom Search client.
// The free tier allows 100 queries per day; rate limiting here only guards
// against bursts.
func NewClient(apiKey, engineID string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 2),
		apiKey:      apiKey,
		engineID:    engineID,
		logger:      logger,
	}
}

// Name identifies this source in logs and reports.
func (c *Client) Name() string { return "websearch" }

// FindCovers runs an image search for "<term> audiobook cover" and returns
// candidates with square images first, then by descending resolution.
func (c *Client) FindCovers(ctx context.Context, q metadata.Query) ([]covers.Candidate, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", q.Term()+" audiobook cover")
	params.Set("searchType", "image")
	params.Set("imgSize", "large")
	params.Set("num", fmt.Sprintf("%d", defaultLimit))

	reqURL := searchBaseURL + "?" + params.Encode()
	c.logger.Debug("searching web for cover", "term", q.Term())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransient, "custom search request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Transientf("custom search status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		// Daily quota exhausted reports as 403.
		return nil, errors.Transientf("custom search quota exhausted (status %d)", resp.StatusCode)
	default:
		return nil, errors.Validationf("custom search status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "parse custom search response")
	}

	if len(sr.Items) == 0 {
		return nil, errors.NotFound("no image results")
	}

	candidates := make([]covers.Candidate, 0, len(sr.Items))
	for _, item := range sr.Items {
		if item.Link == "" {
			continue
		}
		candidates = append(candidates, covers.Candidate{
			URL:    item.Link,
			Width:  item.Image.Width,
			Height: item.Image.Height,
			Origin: domain.CoverOriginSearch,
		})
	}
	orderCandidates(candidates)
	return candidates, nil
}

// orderCandidates sorts square images before non-square, then by the
// smaller dimension descending. Book covers are square; screenshots and
// banners are not.
func orderCandidates(cands []covers.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		si, sj := isSquare(cands[i]), isSquare(cands[j])
		if si != sj {
			return si
		}
		return minDim(cands[i]) > minDim(cands[j])
	})
}

func isSquare(c covers.Candidate) bool {
	if c.Width == 0 || c.Height == 0 {
		return false
	}
	d := c.Width - c.Height
	if d < 0 {
		d = -d
	}
	// Within 5%: search result dimensions are approximate.
	return d*20 <= c.Width
}

func minDim(c covers.Candidate) int {
	if c.Width < c.Height {
		return c.Width
	}
	return c.Height
}

type searchResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Image struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"image"`
	} `json:"items"`
}
