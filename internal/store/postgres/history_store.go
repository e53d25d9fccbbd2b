package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL. Each scan's
// opportunities are kept as a JSONB array on the row.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

const historySelectCols = `id, scanned_at, scan_time_ms, markets_scanned, opportunities`

// Append stores one scan result.
func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	opps := entry.Opportunities
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	data, err := json.Marshal(opps)
	if err != nil {
		return fmt.Errorf("postgres: marshal history opportunities: %w", err)
	}

	const query = `
		INSERT INTO scan_history (scanned_at, scan_time_ms, markets_scanned, opportunities)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, entry.Timestamp, entry.ScanTimeMs, entry.MarketsScanned, data); err != nil {
		return fmt.Errorf("postgres: append history: %w", err)
	}
	return nil
}

// Trim deletes all but the newest keep entries.
func (s *HistoryStore) Trim(ctx context.Context, keep int) (int64, error) {
	const query = `
		DELETE FROM scan_history
		WHERE id NOT IN (
			SELECT id FROM scan_history ORDER BY scanned_at DESC, id DESC LIMIT $1
		)`
	tag, err := s.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("postgres: trim history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Since returns entries at or after since, oldest first.
func (s *HistoryStore) Since(ctx context.Context, since time.Time) ([]domain.HistoryEntry, error) {
	return s.list(ctx, `SELECT `+historySelectCols+` FROM scan_history
		WHERE scanned_at >= $1 ORDER BY scanned_at, id`, since)
}

// All returns every retained entry, oldest first.
func (s *HistoryStore) All(ctx context.Context) ([]domain.HistoryEntry, error) {
	return s.list(ctx, `SELECT `+historySelectCols+` FROM scan_history ORDER BY scanned_at, id`)
}

// ListBefore returns entries strictly older than before, oldest first.
func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEntry, error) {
	return s.list(ctx, `SELECT `+historySelectCols+` FROM scan_history
		WHERE scanned_at < $1 ORDER BY scanned_at, id`, before)
}

// DeleteBefore removes entries strictly older than before.
func (s *HistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scan_history WHERE scanned_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete history before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (s *HistoryStore) list(ctx context.Context, query string, args ...any) ([]domain.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanHistory)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history rows: %w", err)
	}
	return entries, nil
}

func scanHistory(row pgx.CollectableRow) (domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var data []byte
	if err := row.Scan(&e.ID, &e.Timestamp, &e.ScanTimeMs, &e.MarketsScanned, &data); err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e.Opportunities); err != nil {
		return e, fmt.Errorf("unmarshal opportunities of entry %d: %w", e.ID, err)
	}
	return e, nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
