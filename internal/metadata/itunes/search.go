package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
)

const (
	searchBaseURL = "https://itunes.apple.com/search"
	defaultLimit  = 10
)

// FindCovers searches iTunes for the book and returns cover candidates
// with max-resolution URLs and probed dimensions, best first.
func (c *Client) FindCovers(ctx context.Context, q metadata.Query) ([]covers.Candidate, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("term", q.Term())
	params.Set("media", "audiobook")
	params.Set("entity", "audiobook")
	params.Set("limit", strconv.Itoa(defaultLimit))

	searchURL := searchBaseURL + "?" + params.Encode()
	c.logger.Debug("searching iTunes", "term", q.Term())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransient, "itunes search")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Transientf("itunes status %d", resp.StatusCode)
	default:
		return nil, errors.Validationf("itunes status %d", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&searchResp); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "parse itunes response")
	}

	c.logger.Debug("iTunes search results", "term", q.Term(), "count", searchResp.ResultCount)

	var candidates []covers.Candidate
	for i := range searchResp.Results {
		r := &searchResp.Results[i]
		if r.WrapperType != "audiobook" && r.CollectionType != "Audiobook" {
			continue
		}

		artworkURL := r.ArtworkURL100
		if artworkURL == "" {
			artworkURL = r.ArtworkURL60
		}
		coverURL := MaxCoverURL(artworkURL)
		if coverURL == "" {
			continue
		}

		cand := covers.Candidate{URL: coverURL, Origin: domain.CoverOriginITunes}

		// Probe actual dimensions so the finder can pre-filter. iTunes
		// serves up to the requested size, not necessarily all of it.
		width, height, err := ImageDimensions(ctx, c.httpClient, coverURL)
		if err != nil {
			c.logger.Debug("failed to probe cover dimensions",
				"url", coverURL, "error", err)
		} else {
			cand.Width = width
			cand.Height = height
		}

		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return nil, errors.NotFound("no itunes covers matched")
	}
	return candidates, nil
}

// searchResponse is the raw iTunes API response.
type searchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []searchResult `json:"results"`
}

type searchResult struct {
	WrapperType    string `json:"wrapperType"`
	CollectionType string `json:"collectionType"`
	CollectionID   int64  `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	ArtistName     string `json:"artistName"`
	ArtworkURL60   string `json:"artworkUrl60"`
	ArtworkURL100  string `json:"artworkUrl100"`
}
