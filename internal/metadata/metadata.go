// Package metadata defines the source interface and the resolver cascade
// that turns a name guess into authoritative book metadata.
package metadata

import (
	"context"
	"strings"

	"github.com/listenupapp/listenup-organizer/internal/domain"
)

// Query is what the pipeline knows about a unit before resolution: the
// parser's best guess plus the raw cleaned name as a fallback search term.
type Query struct {
	Title   string
	Author  string
	RawName string
}

// Term builds a free-text search term from the query, preferring the
// parsed fields over the raw name.
func (q Query) Term() string {
	parts := make([]string, 0, 2)
	if q.Title != "" {
		parts = append(parts, q.Title)
	}
	if q.Author != "" {
		parts = append(parts, q.Author)
	}
	if len(parts) == 0 && q.RawName != "" {
		parts = append(parts, q.RawName)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Empty reports whether the query carries nothing to search with.
func (q Query) Empty() bool { return q.Term() == "" }

// Source is one metadata provider in the cascade.
//
// Lookup returns errors from the pipeline taxonomy: NotFound when the
// source has no match, Transient when it should be retried, Validation
// when the response was malformed. Any metadata returned must at least be
// Classifiable.
type Source interface {
	Name() string
	Lookup(ctx context.Context, q Query) (*domain.BookMetadata, error)
}
