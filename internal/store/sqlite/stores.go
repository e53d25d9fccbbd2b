package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// HistoryStore implements domain.HistoryStore on SQLite.
type HistoryStore struct{ db *sql.DB }

// NewHistoryStore returns a HistoryStore on d.
func NewHistoryStore(d *DB) *HistoryStore { return &HistoryStore{db: d.db} }

const historyCols = `id, scanned_at, scan_time_ms, markets_scanned, opportunities`

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	opps := entry.Opportunities
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	data, err := json.Marshal(opps)
	if err != nil {
		return fmt.Errorf("sqlite: marshal history opportunities: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_history (scanned_at, scan_time_ms, markets_scanned, opportunities) VALUES (?, ?, ?, ?)`,
		toUnix(entry.Timestamp), entry.ScanTimeMs, entry.MarketsScanned, string(data),
	); err != nil {
		return fmt.Errorf("sqlite: append history: %w", err)
	}
	return nil
}

func (s *HistoryStore) Trim(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scan_history
		WHERE id NOT IN (
			SELECT id FROM scan_history ORDER BY scanned_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("sqlite: trim history: %w", err)
	}
	return res.RowsAffected()
}

func (s *HistoryStore) Since(ctx context.Context, since time.Time) ([]domain.HistoryEntry, error) {
	return s.list(ctx, `SELECT `+historyCols+` FROM scan_history WHERE scanned_at >= ? ORDER BY scanned_at, id`, toUnix(since))
}

func (s *HistoryStore) All(ctx context.Context) ([]domain.HistoryEntry, error) {
	return s.list(ctx, `SELECT `+historyCols+` FROM scan_history ORDER BY scanned_at, id`)
}

func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEntry, error) {
	return s.list(ctx, `SELECT `+historyCols+` FROM scan_history WHERE scanned_at < ? ORDER BY scanned_at, id`, toUnix(before))
}

func (s *HistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_history WHERE scanned_at < ?`, toUnix(before))
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete history: %w", err)
	}
	return res.RowsAffected()
}

func (s *HistoryStore) list(ctx context.Context, query string, args ...any) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var at int64
		var data string
		if err := rows.Scan(&e.ID, &at, &e.ScanTimeMs, &e.MarketsScanned, &data); err != nil {
			return nil, fmt.Errorf("sqlite: scan history: %w", err)
		}
		e.Timestamp = fromUnix(at)
		if err := json.Unmarshal([]byte(data), &e.Opportunities); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal history %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WebhookStore implements domain.WebhookStore on SQLite.
type WebhookStore struct{ db *sql.DB }

// NewWebhookStore returns a WebhookStore on d.
func NewWebhookStore(d *DB) *WebhookStore { return &WebhookStore{db: d.db} }

const webhookCols = `id, owner, url, min_spread_pct, categories, platforms, secret, created_at`

func (s *WebhookStore) Create(ctx context.Context, sub domain.WebhookSubscription) error {
	cats, err := json.Marshal(orEmpty(sub.Categories))
	if err != nil {
		return fmt.Errorf("sqlite: marshal categories: %w", err)
	}
	plats, err := json.Marshal(orEmpty(sub.Platforms))
	if err != nil {
		return fmt.Errorf("sqlite: marshal platforms: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO webhooks (`+webhookCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Owner, sub.URL, sub.MinSpreadPct, string(cats), string(plats), sub.Secret, toUnix(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create webhook %s: %w", sub.ID, mapWriteErr(err))
	}
	return nil
}

func (s *WebhookStore) ListByOwner(ctx context.Context, owner string) ([]domain.WebhookSubscription, error) {
	return s.list(ctx, `SELECT `+webhookCols+` FROM webhooks WHERE owner = ? ORDER BY created_at, id`, owner)
}

func (s *WebhookStore) ListAll(ctx context.Context) ([]domain.WebhookSubscription, error) {
	return s.list(ctx, `SELECT `+webhookCols+` FROM webhooks ORDER BY created_at, id`)
}

func (s *WebhookStore) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete webhook %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *WebhookStore) list(ctx context.Context, query string, args ...any) ([]domain.WebhookSubscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list webhooks: %w", err)
	}
	defer rows.Close()

	var out []domain.WebhookSubscription
	for rows.Next() {
		var w domain.WebhookSubscription
		var cats, plats string
		var at int64
		if err := rows.Scan(&w.ID, &w.Owner, &w.URL, &w.MinSpreadPct, &cats, &plats, &w.Secret, &at); err != nil {
			return nil, fmt.Errorf("sqlite: scan webhook: %w", err)
		}
		if err := json.Unmarshal([]byte(cats), &w.Categories); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal categories: %w", err)
		}
		if err := json.Unmarshal([]byte(plats), &w.Platforms); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal platforms: %w", err)
		}
		w.CreatedAt = fromUnix(at)
		out = append(out, w)
	}
	return out, rows.Err()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// APIKeyStore implements domain.APIKeyStore on SQLite.
type APIKeyStore struct{ db *sql.DB }

// NewAPIKeyStore returns an APIKeyStore on d.
func NewAPIKeyStore(d *DB) *APIKeyStore { return &APIKeyStore{db: d.db} }

func (s *APIKeyStore) Create(ctx context.Context, key domain.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (digest, tier, owner, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.Digest, string(key.Tier), key.Owner, key.Active, toUnix(key.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create api key: %w", mapWriteErr(err))
	}
	return nil
}

func (s *APIKeyStore) GetByDigest(ctx context.Context, digest string) (domain.APIKey, error) {
	var k domain.APIKey
	var tier string
	var at int64
	err := s.db.QueryRowContext(ctx,
		`SELECT digest, tier, owner, active, created_at FROM api_keys WHERE digest = ?`, digest,
	).Scan(&k.Digest, &tier, &k.Owner, &k.Active, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.APIKey{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.APIKey{}, fmt.Errorf("sqlite: get api key: %w", err)
	}
	k.Tier = domain.Tier(tier)
	k.CreatedAt = fromUnix(at)
	return k, nil
}

func (s *APIKeyStore) Deactivate(ctx context.Context, digest string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET active = 0 WHERE digest = ?`, digest)
	if err != nil {
		return fmt.Errorf("sqlite: deactivate api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AuditStore implements domain.AuditStore on SQLite.
type AuditStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditStore returns an AuditStore on d.
func NewAuditStore(d *DB) *AuditStore { return &AuditStore{db: d.db, now: time.Now} }

func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("sqlite: marshal audit detail: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (event, detail, created_at) VALUES (?, ?, ?)`,
		event, string(data), toUnix(s.now()),
	); err != nil {
		return fmt.Errorf("sqlite: log audit event %s: %w", event, err)
	}
	return nil
}

func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query := `SELECT id, event, detail, created_at FROM audit_log WHERE 1=1`
	var args []any
	if opts.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, toUnix(*opts.Since))
	}
	if opts.Until != nil {
		query += ` AND created_at <= ?`
		args = append(args, toUnix(*opts.Until))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detail sql.NullString
		var at int64
		if err := rows.Scan(&e.ID, &e.Event, &detail, &at); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit entry: %w", err)
		}
		if detail.Valid && detail.String != "" {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal audit detail: %w", err)
			}
		}
		e.CreatedAt = fromUnix(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Compile-time interface checks.
var (
	_ domain.HistoryStore = (*HistoryStore)(nil)
	_ domain.WebhookStore = (*WebhookStore)(nil)
	_ domain.APIKeyStore  = (*APIKeyStore)(nil)
	_ domain.AuditStore   = (*AuditStore)(nil)
)
