// Package session tracks whether an applicant currently has a live session on an application form.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadflow/consent-service/internal/system/config"
	"github.com/leadflow/consent-service/internal/system/log"
)

const presenceKeyPrefix = "consent:presence:"

// PresenceTracker records client activity per application form for a bounded time.
type PresenceTracker interface {
	MarkActive(ctx context.Context, formID string) error
	IsActive(ctx context.Context, formID string) (bool, error)
	Clear(ctx context.Context, formID string) error
}

// NewPresenceTracker returns a redis backed tracker when an address is configured and an in-memory one otherwise.
// The second return value closes the underlying connection, if any.
func NewPresenceTracker(cfg config.SessionConfig) (PresenceTracker, func() error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "PresenceTracker"))
	if cfg.Redis.Address == "" {
		logger.Info("Redis not configured, client presence is tracked in memory")
		return NewMemoryTracker(cfg.PresenceTTL, time.Now), func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("Client presence is tracked in redis", log.String("address", cfg.Redis.Address))
	return NewRedisTracker(client, cfg.PresenceTTL), client.Close
}

type redisTracker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisTracker stores one expiring key per form.
func NewRedisTracker(client redis.UniversalClient, ttl time.Duration) PresenceTracker {
	return &redisTracker{client: client, ttl: ttl}
}

func (t *redisTracker) MarkActive(ctx context.Context, formID string) error {
	if err := t.client.Set(ctx, presenceKeyPrefix+formID, time.Now().UnixMilli(), t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark presence for form %s: %w", formID, err)
	}
	return nil
}

func (t *redisTracker) IsActive(ctx context.Context, formID string) (bool, error) {
	err := t.client.Get(ctx, presenceKeyPrefix+formID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read presence for form %s: %w", formID, err)
	}
	return true, nil
}

func (t *redisTracker) Clear(ctx context.Context, formID string) error {
	return t.client.Del(ctx, presenceKeyPrefix+formID).Err()
}

type memoryTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	expires map[string]time.Time
}

// NewMemoryTracker keeps presence in process. Entries expire lazily on read.
func NewMemoryTracker(ttl time.Duration, now func() time.Time) PresenceTracker {
	return &memoryTracker{ttl: ttl, now: now, expires: make(map[string]time.Time)}
}

func (t *memoryTracker) MarkActive(_ context.Context, formID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires[formID] = t.now().Add(t.ttl)
	return nil
}

func (t *memoryTracker) IsActive(_ context.Context, formID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline, ok := t.expires[formID]
	if !ok {
		return false, nil
	}
	if !t.now().Before(deadline) {
		delete(t.expires, formID)
		return false, nil
	}
	return true, nil
}

func (t *memoryTracker) Clear(_ context.Context, formID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.expires, formID)
	return nil
}
