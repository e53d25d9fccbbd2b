package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// HistoryStore persists scan history.
type HistoryStore interface {
	Append(ctx context.Context, entry HistoryEntry) error
	// Trim keeps only the newest keep entries and returns how many were removed.
	Trim(ctx context.Context, keep int) (int64, error)
	Since(ctx context.Context, since time.Time) ([]HistoryEntry, error)
	All(ctx context.Context) ([]HistoryEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]HistoryEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// WebhookStore persists webhook subscriptions.
type WebhookStore interface {
	Create(ctx context.Context, sub WebhookSubscription) error
	ListByOwner(ctx context.Context, owner string) ([]WebhookSubscription, error)
	ListAll(ctx context.Context) ([]WebhookSubscription, error)
	Delete(ctx context.Context, owner, id string) error
}

// APIKeyStore persists hashed API keys.
type APIKeyStore interface {
	Create(ctx context.Context, key APIKey) error
	GetByDigest(ctx context.Context, digest string) (APIKey, error)
	Deactivate(ctx context.Context, digest string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
