// ABOUTME: Persistent delivery-id dedupe store using modernc.org/sqlite.
// ABOUTME: Prevents a redelivered platform event from producing a second reply.

package dedupe

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store tracks delivery ids that have already been processed on this host.
// Runs are separate processes, so the memory has to live on disk; entries
// expire after the TTL since platforms stop redelivering long before that.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open creates or opens the dedupe store at the given path. The schema is
// created automatically and expired entries are pruned on open.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dedupe")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating dedupe directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dedupe store: %w", err)
	}

	// Concurrent runs on the same host may open this store together.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			seen_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deliveries_seen_at ON deliveries(seen_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating dedupe schema: %w", err)
	}

	s := &Store{db: db, ttl: ttl, logger: logger}
	if pruned, err := s.prune(); err != nil {
		logger.Warn("failed to prune expired deliveries", "error", err)
	} else if pruned > 0 {
		logger.Debug("pruned expired deliveries", "count", pruned)
	}

	return s, nil
}

// Seen reports whether a delivery id has already been marked. It never
// marks: a run that later fails must leave the id unmarked so the
// platform's redelivery gets a second chance.
func (s *Store) Seen(ctx context.Context, deliveryID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM deliveries WHERE id = ?", deliveryID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking delivery %s: %w", deliveryID, err)
	}
	return n > 0, nil
}

// Mark records a delivery id as processed. Idempotent.
func (s *Store) Mark(ctx context.Context, deliveryID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO deliveries (id, seen_at) VALUES (?, ?)",
		deliveryID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("marking delivery %s: %w", deliveryID, err)
	}
	return nil
}

// prune removes entries older than the TTL.
func (s *Store) prune() (int64, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()
	res, err := s.db.Exec("DELETE FROM deliveries WHERE seen_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
