package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/browseease/browseease/internal/domain"
	"github.com/browseease/browseease/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		shopper_id TEXT NOT NULL,
		query TEXT NOT NULL,
		category TEXT NOT NULL,
		plan_json TEXT,
		result_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_searches_shopper ON searches(shopper_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_searches_created ON searches(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSearch records one executed search. Retries briefly on SQLITE_BUSY
// since streaming handlers and the cleanup worker share the database.
func (s *SQLiteStore) SaveSearch(ctx context.Context, rec *domain.SearchRecord) error {
	query := `
	INSERT INTO searches (id, shopper_id, query, category, plan_json, result_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	var planJSON interface{}
	if rec.PlanJSON != "" {
		planJSON = rec.PlanJSON
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond
	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query,
			rec.ID, rec.ShopperID, rec.Query, string(rec.Category),
			planJSON, rec.ResultCount, rec.CreatedAt.Unix(),
		)
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("SaveSearch hit a locked database, retrying",
				"search_id", rec.ID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return fmt.Errorf("save search: %w", err)
}

// RecentSearches returns a shopper's latest searches, newest first.
func (s *SQLiteStore) RecentSearches(ctx context.Context, shopperID string, limit int) ([]*domain.SearchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, shopper_id, query, category, plan_json, result_count, created_at
		FROM searches WHERE shopper_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, shopperID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent searches: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recent searches rows", "error", closeErr)
		}
	}()

	var records []*domain.SearchRecord
	for rows.Next() {
		var rec domain.SearchRecord
		var category string
		var planJSON sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&rec.ID, &rec.ShopperID, &rec.Query, &category,
			&planJSON, &rec.ResultCount, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}

		rec.Category = domain.Category(category)
		rec.PlanJSON = planJSON.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent searches: %w", err)
	}

	return records, nil
}

// CleanupOldSearches removes records older than ttl.
func (s *SQLiteStore) CleanupOldSearches(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup old searches: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
