package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/crypto"
	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// rateWindow is the sliding window tier limits are counted over.
const rateWindow = time.Hour

// Quota is the outcome of charging one request to a key.
type Quota struct {
	Key       domain.APIKey
	Allowed   bool
	Remaining int
	// Limit is the hourly allowance; 0 means unlimited.
	Limit int
}

// APIKeyService issues keys and enforces their tier limits.
type APIKeyService struct {
	keys    domain.APIKeyStore
	limiter domain.RateLimiter
	audit   domain.AuditStore
	pepper  string
	limits  map[domain.Tier]int
	logger  *slog.Logger
	now     func() time.Time
}

// NewAPIKeyService creates an APIKeyService. overrides replaces the default
// hourly limit of the named tiers. limiter and audit may be nil.
func NewAPIKeyService(keys domain.APIKeyStore, limiter domain.RateLimiter, audit domain.AuditStore, pepper string, overrides map[string]int, logger *slog.Logger) *APIKeyService {
	limits := map[domain.Tier]int{
		domain.TierFree: domain.TierFree.Limit(),
		domain.TierPro:  domain.TierPro.Limit(),
		domain.TierAPI:  domain.TierAPI.Limit(),
	}
	for name, n := range overrides {
		if t := domain.Tier(name); t.Valid() {
			limits[t] = n
		}
	}
	return &APIKeyService{
		keys:    keys,
		limiter: limiter,
		audit:   audit,
		pepper:  pepper,
		limits:  limits,
		logger:  logger.With(slog.String("component", "apikey_service")),
		now:     time.Now,
	}
}

// Create issues a new key for tier and stores its digest. The raw key is
// returned once and never persisted.
func (s *APIKeyService) Create(ctx context.Context, tier domain.Tier, owner string) (string, error) {
	raw, err := crypto.GenerateAPIKey(tier)
	if err != nil {
		return "", fmt.Errorf("apikey_service: %w: %w", domain.ErrInvalidInput, err)
	}
	key := domain.APIKey{
		Digest:    crypto.HashAPIKey(raw, s.pepper),
		Tier:      tier,
		Owner:     owner,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return "", fmt.Errorf("apikey_service: create: %w", err)
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "apikey.create", map[string]any{"tier": string(tier), "owner": owner}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	return raw, nil
}

// Digest returns the storage digest of a raw key.
func (s *APIKeyService) Digest(raw string) string {
	return crypto.HashAPIKey(raw, s.pepper)
}

// Authenticate resolves a raw key to its active stored record.
func (s *APIKeyService) Authenticate(ctx context.Context, raw string) (domain.APIKey, error) {
	if _, err := crypto.ParseAPIKey(raw); err != nil {
		return domain.APIKey{}, domain.ErrUnauthorized
	}
	key, err := s.keys.GetByDigest(ctx, s.Digest(raw))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.APIKey{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.APIKey{}, fmt.Errorf("apikey_service: lookup: %w", err)
	}
	if !key.Active {
		return domain.APIKey{}, domain.ErrUnauthorized
	}
	return key, nil
}

// Charge authenticates raw and counts one request against its tier's hourly
// limit. Requests are admitted when no limiter is configured or the limiter
// backend fails.
func (s *APIKeyService) Charge(ctx context.Context, raw string) (Quota, error) {
	key, err := s.Authenticate(ctx, raw)
	if err != nil {
		return Quota{}, err
	}
	limit := s.limits[key.Tier]
	q := Quota{Key: key, Allowed: true, Limit: limit, Remaining: limit}
	if limit <= 0 || s.limiter == nil {
		return q, nil
	}

	bucket := "apikey:" + key.Digest
	allowed, remaining, err := s.limiter.Allow(ctx, bucket, limit, rateWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable, admitting request", slog.String("error", err.Error()))
		return q, nil
	}
	q.Allowed = allowed
	q.Remaining = remaining
	return q, nil
}

// Revoke deactivates a raw key.
func (s *APIKeyService) Revoke(ctx context.Context, raw string) error {
	if err := s.keys.Deactivate(ctx, s.Digest(raw)); err != nil {
		return fmt.Errorf("apikey_service: revoke: %w", err)
	}
	return nil
}
