// Package googlebooks queries the Google Books volumes API for book
// metadata. It is the first source in the resolution cascade because it is
// free, keyless, and precise when the name parse is good.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
	"github.com/listenupapp/listenup-organizer/internal/normalize"
)

const (
	volumesBaseURL = "https://www.googleapis.com/books/v1/volumes"
	defaultLimit   = 5
)

// Client provides access to the Google Books volumes API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	apiKey      string
	baseURL     string
	logger      *slog.Logger
}

// NewClient creates a Google Books client. apiKey may be empty; the
// volumes endpoint works without one at a lower quota.
// Rate limited to 60 requests per minute.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		apiKey:      apiKey,
		baseURL:     volumesBaseURL,
		logger:      logger,
	}
}

// Name identifies this source in logs and reports.
func (c *Client) Name() string { return "googlebooks" }

// Lookup searches volumes for the query and maps the best hit onto book
// metadata. Uses fielded search (intitle/inauthor) when the parse supplied
// fields, free text otherwise.
func (c *Client) Lookup(ctx context.Context, q metadata.Query) (*domain.BookMetadata, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", buildQuery(q))
	params.Set("maxResults", strconv.Itoa(defaultLimit))
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := c.baseURL + "?" + params.Encode()
	c.logger.Debug("querying google books", "term", q.Term())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransient, "google books request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Transientf("google books status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFound("no volumes matched")
	default:
		return nil, errors.Validationf("google books status %d", resp.StatusCode)
	}

	var vr volumesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&vr); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "parse google books response")
	}

	if vr.TotalItems == 0 || len(vr.Items) == 0 {
		return nil, errors.NotFound("no volumes matched")
	}

	meta := vr.Items[0].VolumeInfo.toBookMetadata()
	if !meta.Classifiable() {
		return nil, errors.Validation("volume missing title or author")
	}
	return meta, nil
}

// buildQuery prefers fielded search over free text. Google Books treats an
// unquoted intitle: as a loose match, which is what we want for noisy
// filename-derived titles.
func buildQuery(q metadata.Query) string {
	var parts []string
	if q.Title != "" {
		parts = append(parts, "intitle:"+q.Title)
	}
	if q.Author != "" {
		parts = append(parts, "inauthor:"+q.Author)
	}
	if len(parts) == 0 {
		return q.Term()
	}
	return strings.Join(parts, " ")
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo volumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type volumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	Categories          []string `json:"categories"`
	Language            string   `json:"language"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
}

var yearRE = regexp.MustCompile(`\d{4}`)

func (v volumeInfo) toBookMetadata() *domain.BookMetadata {
	meta := &domain.BookMetadata{
		Title:       strings.TrimSpace(v.Title),
		Subtitle:    strings.TrimSpace(v.Subtitle),
		Authors:     v.Authors,
		Publisher:   v.Publisher,
		Description: v.Description,
		Genres:      v.Categories,
		Language:    normalize.LanguageCode(v.Language),
		PublishYear: yearRE.FindString(v.PublishedDate),
	}
	for _, ident := range v.IndustryIdentifiers {
		if ident.Type == "ISBN_13" {
			meta.ISBN = ident.Identifier
			break
		}
		if ident.Type == "ISBN_10" && meta.ISBN == "" {
			meta.ISBN = ident.Identifier
		}
	}
	return meta
}
