package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	// scanLockTTL bounds how long one replica may hold the compute lock.
	scanLockTTL = 60 * time.Second
	// scanWaitPoll is how often a replica that lost the lock race re-reads
	// the cached value.
	scanWaitPoll = 100 * time.Millisecond
	// scanWaitMax is how long it waits before computing anyway.
	scanWaitMax = 20 * time.Second
)

// ScanCache implements domain.ScanCache with plain Redis strings.
//
// Key schema:
//
//	scan:{key}       - cached payload, expires after the caller's TTL
//	lock:scan:{key}  - compute lock held by the replica refreshing the value
//
// Callers in the same process share one computation through singleflight;
// callers across replicas share it through the lock.
type ScanCache struct {
	rdb    *redis.Client
	locks  domain.LockManager
	group  singleflight.Group
	poll   time.Duration
	wait   time.Duration
	logger *slog.Logger
}

// NewScanCache creates a ScanCache backed by the given Client and lock manager.
func NewScanCache(c *Client, locks domain.LockManager, logger *slog.Logger) *ScanCache {
	return &ScanCache{
		rdb:    c.Underlying(),
		locks:  locks,
		poll:   scanWaitPoll,
		wait:   scanWaitMax,
		logger: logger.With(slog.String("component", "scan_cache")),
	}
}

func scanKey(key string) string { return "scan:" + key }

// GetOrCompute returns the cached payload for key, computing and storing it
// when absent. A ttl of zero disables caching and always computes.
func (sc *ScanCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if ttl <= 0 {
		return compute(ctx)
	}

	v, err, _ := sc.group.Do(key, func() (any, error) {
		return sc.load(ctx, key, ttl, compute)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (sc *ScanCache) load(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok, err := sc.get(ctx, key); err != nil || ok {
		return data, err
	}

	unlock, err := sc.locks.Acquire(ctx, scanKey(key), scanLockTTL)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		if data, ok, err := sc.await(ctx, key); err != nil || ok {
			return data, err
		}
		// The holder never published; compute without the lock.
	case err != nil:
		return nil, fmt.Errorf("redis: scan cache %s: %w", key, err)
	default:
		defer unlock()
		if data, ok, err := sc.get(ctx, key); err != nil || ok {
			return data, err
		}
	}

	data, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	// The scan already ran; a failed store only costs the next caller a recompute.
	if err := sc.rdb.Set(ctx, scanKey(key), data, ttl).Err(); err != nil {
		sc.logger.WarnContext(ctx, "scan cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return data, nil
}

func (sc *ScanCache) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := sc.rdb.Get(ctx, scanKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: scan cache get %s: %w", key, err)
	}
	return data, true, nil
}

// await polls for a value published by the replica holding the lock.
func (sc *ScanCache) await(ctx context.Context, key string) ([]byte, bool, error) {
	deadline := time.NewTimer(sc.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(sc.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false, fmt.Errorf("redis: scan cache wait %s: %w", key, ctx.Err())
		case <-deadline.C:
			return nil, false, nil
		case <-ticker.C:
			if data, ok, err := sc.get(ctx, key); err != nil || ok {
				return data, ok, err
			}
		}
	}
}

// Invalidate drops the cached payload for key.
func (sc *ScanCache) Invalidate(ctx context.Context, key string) error {
	if err := sc.rdb.Del(ctx, scanKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: scan cache invalidate %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ScanCache = (*ScanCache)(nil)
