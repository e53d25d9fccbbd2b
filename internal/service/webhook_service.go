package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// WebhookRequest is a registration as submitted by a client.
type WebhookRequest struct {
	URL          string   `json:"url"`
	MinSpreadPct *float64 `json:"min_spread_pct"`
	Categories   []string `json:"categories"`
	Platforms    []string `json:"platforms"`
	Secret       string   `json:"secret"`
}

// WebhookService manages webhook subscriptions scoped by owner.
type WebhookService struct {
	store domain.WebhookStore
	now   func() time.Time
	newID func() string
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(store domain.WebhookStore) *WebhookService {
	return &WebhookService{store: store, now: time.Now, newID: uuid.NewString}
}

// Register validates req and stores it under owner.
func (s *WebhookService) Register(ctx context.Context, owner string, req WebhookRequest) (domain.WebhookSubscription, error) {
	if req.URL == "" || req.MinSpreadPct == nil {
		return domain.WebhookSubscription{}, fmt.Errorf("%w: url and min_spread_pct required", domain.ErrInvalidInput)
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.WebhookSubscription{}, fmt.Errorf("%w: url must be an absolute http(s) URL", domain.ErrInvalidInput)
	}
	if owner == "" {
		owner = domain.AnonymousOwner
	}

	sub := domain.WebhookSubscription{
		ID:           s.newID(),
		Owner:        owner,
		URL:          req.URL,
		MinSpreadPct: *req.MinSpreadPct,
		Categories:   nonNilStrings(req.Categories),
		Platforms:    nonNilStrings(req.Platforms),
		Secret:       req.Secret,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return domain.WebhookSubscription{}, fmt.Errorf("webhook_service: create: %w", err)
	}
	return sub, nil
}

// List returns owner's subscriptions.
func (s *WebhookService) List(ctx context.Context, owner string) ([]domain.WebhookSubscription, error) {
	if owner == "" {
		owner = domain.AnonymousOwner
	}
	subs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("webhook_service: list: %w", err)
	}
	if subs == nil {
		subs = []domain.WebhookSubscription{}
	}
	return subs, nil
}

// Delete removes owner's subscription id. It returns domain.ErrNotFound when
// owner has no such subscription.
func (s *WebhookService) Delete(ctx context.Context, owner, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id query param required", domain.ErrInvalidInput)
	}
	if owner == "" {
		owner = domain.AnonymousOwner
	}
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return fmt.Errorf("webhook_service: delete: %w", err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
