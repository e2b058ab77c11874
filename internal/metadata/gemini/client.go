// Package gemini resolves book metadata by asking a Gemini model to
// identify the book behind a messy filename. It is the fallback source in
// the cascade: slower and fuzzier than a catalog lookup, but it handles
// names no structured search can.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
)

const generateURLFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Client calls the Gemini generateContent API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	apiKey      string
	model       string
	logger      *slog.Logger
}

// NewClient creates a Gemini client. The free tier allows 15 requests per
// minute; we stay under that.
func NewClient(apiKey, model string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Every(5*time.Second), 2),
		apiKey:      apiKey,
		model:       model,
		logger:      logger,
	}
}

// Name identifies this source in logs and reports.
func (c *Client) Name() string { return "gemini" }

// Lookup asks the model to identify the book and parses its line-oriented
// answer into metadata.
func (c *Client) Lookup(ctx context.Context, q metadata.Query) (*domain.BookMetadata, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(q)
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	reqURL := fmt.Sprintf(generateURLFormat, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("querying gemini", "model", c.model, "term", q.Term())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransient, "gemini request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Transientf("gemini status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Configf("gemini rejected credentials (status %d)", resp.StatusCode)
	default:
		return nil, errors.Validationf("gemini status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&gr); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "parse gemini response")
	}

	text := gr.text()
	if text == "" {
		return nil, errors.NotFound("gemini returned no answer")
	}

	meta := ParseAnswer(text)
	if meta == nil {
		return nil, errors.NotFound("gemini could not identify the book")
	}
	if !meta.Classifiable() {
		return nil, errors.Validation("gemini answer missing title or author")
	}
	return meta, nil
}

func buildPrompt(q metadata.Query) string {
	return fmt.Sprintf(
		"You are identifying an audiobook from a file name. The name is: %q.\n"+
			"Answer with exactly these lines, leaving a field empty if unknown:\n"+
			"Title: <title>\n"+
			"Author: <author>\n"+
			"Narrator: <narrator>\n"+
			"Series: <series name>\n"+
			"Sequence: <number in series>\n"+
			"Year: <first publication year>\n"+
			"Genre: <genre>\n"+
			"Language: <two-letter code>\n"+
			"If you cannot identify a real published book, answer with the single "+
			"word UNKNOWN.",
		q.Term(),
	)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}
