package domain

import (
	"errors"
	"strings"
)

// DefaultMaxResults bounds a search when the client does not ask for a
// specific result count.
const DefaultMaxResults = 10

// ErrEmptyQuery is returned when a search request carries no query text.
var ErrEmptyQuery = errors.New("search query must not be empty")

// SearchRequest is the payload a client sends to begin a logical search.
// The same payload is re-sent on every reconnect so the backend can resume
// or restart the same search.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Validate checks the request and normalizes the result bound.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if r.MaxResults <= 0 {
		r.MaxResults = DefaultMaxResults
	}
	return nil
}
