package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// APIKeyStore implements domain.APIKeyStore using PostgreSQL.
type APIKeyStore struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStore creates a new APIKeyStore backed by the given connection pool.
func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{pool: pool}
}

// Create stores a key digest.
func (s *APIKeyStore) Create(ctx context.Context, key domain.APIKey) error {
	const query = `
		INSERT INTO api_keys (digest, tier, owner, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, key.Digest, string(key.Tier), key.Owner, key.Active, key.CreatedAt); err != nil {
		return fmt.Errorf("postgres: create api key: %w", mapWriteErr(err))
	}
	return nil
}

// GetByDigest looks a key up by digest. It returns domain.ErrNotFound when
// no key has that digest.
func (s *APIKeyStore) GetByDigest(ctx context.Context, digest string) (domain.APIKey, error) {
	const query = `SELECT digest, tier, owner, active, created_at FROM api_keys WHERE digest = $1`

	var k domain.APIKey
	var tier string
	err := s.pool.QueryRow(ctx, query, digest).Scan(&k.Digest, &tier, &k.Owner, &k.Active, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.APIKey{}, domain.ErrNotFound
		}
		return domain.APIKey{}, fmt.Errorf("postgres: get api key: %w", err)
	}
	k.Tier = domain.Tier(tier)
	return k, nil
}

// Deactivate marks a key inactive.
func (s *APIKeyStore) Deactivate(ctx context.Context, digest string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET active = FALSE WHERE digest = $1`, digest)
	if err != nil {
		return fmt.Errorf("postgres: deactivate api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.APIKeyStore = (*APIKeyStore)(nil)
