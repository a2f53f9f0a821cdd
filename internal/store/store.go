// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/browseease/browseease/internal/domain"
)

// Repository defines the interface for persisting search history.
type Repository interface {
	// SaveSearch records one executed search.
	SaveSearch(ctx context.Context, rec *domain.SearchRecord) error

	// RecentSearches returns a shopper's latest searches, newest first.
	RecentSearches(ctx context.Context, shopperID string, limit int) ([]*domain.SearchRecord, error)

	// CleanupOldSearches removes records older than ttl and returns the
	// number deleted.
	CleanupOldSearches(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
