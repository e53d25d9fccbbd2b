package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// WebhookStore implements domain.WebhookStore using PostgreSQL.
type WebhookStore struct {
	pool *pgxpool.Pool
}

// NewWebhookStore creates a new WebhookStore backed by the given connection pool.
func NewWebhookStore(pool *pgxpool.Pool) *WebhookStore {
	return &WebhookStore{pool: pool}
}

const webhookSelectCols = `id, owner, url, min_spread_pct, categories, platforms, secret, created_at`

// Create stores a new subscription. It returns domain.ErrAlreadyExists when
// the id is taken.
func (s *WebhookStore) Create(ctx context.Context, sub domain.WebhookSubscription) error {
	const query = `
		INSERT INTO webhooks (id, owner, url, min_spread_pct, categories, platforms, secret, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		sub.ID, sub.Owner, sub.URL, sub.MinSpreadPct,
		nonNil(sub.Categories), nonNil(sub.Platforms), sub.Secret, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create webhook %s: %w", sub.ID, mapWriteErr(err))
	}
	return nil
}

// ListByOwner returns the owner's subscriptions, oldest first.
func (s *WebhookStore) ListByOwner(ctx context.Context, owner string) ([]domain.WebhookSubscription, error) {
	return s.list(ctx, `SELECT `+webhookSelectCols+` FROM webhooks WHERE owner = $1 ORDER BY created_at, id`, owner)
}

// ListAll returns every subscription, oldest first.
func (s *WebhookStore) ListAll(ctx context.Context) ([]domain.WebhookSubscription, error) {
	return s.list(ctx, `SELECT `+webhookSelectCols+` FROM webhooks ORDER BY created_at, id`)
}

// Delete removes the owner's subscription with the given id. It returns
// domain.ErrNotFound when no such subscription exists for that owner.
func (s *WebhookStore) Delete(ctx context.Context, owner, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM webhooks WHERE owner = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("postgres: delete webhook %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *WebhookStore) list(ctx context.Context, query string, args ...any) ([]domain.WebhookSubscription, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list webhooks: %w", err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.WebhookSubscription, error) {
		var w domain.WebhookSubscription
		err := row.Scan(&w.ID, &w.Owner, &w.URL, &w.MinSpreadPct, &w.Categories, &w.Platforms, &w.Secret, &w.CreatedAt)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: list webhooks rows: %w", err)
	}
	return subs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Compile-time interface check.
var _ domain.WebhookStore = (*WebhookStore)(nil)
