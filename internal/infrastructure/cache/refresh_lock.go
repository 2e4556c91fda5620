package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshLock serialises token refreshes per tenant and provider. Only one
// holder may refresh at a time; everyone else waits and re-reads the stored
// credential once the holder is done.
type RefreshLock interface {
	// Acquire attempts to take the lock. Returns a release token and
	// whether the lock was obtained. ttl bounds how long an abandoned
	// lock blocks other refreshers.
	Acquire(ctx context.Context, tenantID, provider string, ttl time.Duration) (string, bool, error)

	// Release releases the lock if the token still owns it
	Release(ctx context.Context, tenantID, provider, token string) error
}

// RedisRefreshLock implements RefreshLock using Redis
// This is suitable for distributed deployments where multiple instances
// may refresh the same tenant's tokens concurrently
type RedisRefreshLock struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// releaseScript deletes the lock key only when the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisRefreshLock creates a new Redis-based refresh lock
func NewRedisRefreshLock(cfg RedisConfig) (*RedisRefreshLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for refresh lock: %w", err)
	}

	return &RedisRefreshLock{
		client:    client,
		keyPrefix: "token:refresh:",
	}, nil
}

// NewRedisRefreshLockWithClient creates a refresh lock with an existing Redis client
func NewRedisRefreshLockWithClient(client *redis.Client) *RedisRefreshLock {
	return &RedisRefreshLock{
		client:    client,
		keyPrefix: "token:refresh:",
	}
}

func (l *RedisRefreshLock) key(tenantID, provider string) string {
	return l.keyPrefix + tenantID + ":" + provider
}

// Acquire takes the lock with SETNX so only one refresher wins
func (l *RedisRefreshLock) Acquire(ctx context.Context, tenantID, provider string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key(tenantID, provider), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release releases the lock, but never someone else's. An expired lock may
// have been re-acquired by another instance; the script only deletes the key
// when the stored token matches.
func (l *RedisRefreshLock) Release(ctx context.Context, tenantID, provider, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(tenantID, provider)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release refresh lock: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisRefreshLock) Close() error {
	return l.client.Close()
}

// Ensure RedisRefreshLock implements RefreshLock
var _ RefreshLock = (*RedisRefreshLock)(nil)

// InMemoryRefreshLock provides an in-memory implementation for testing
// WARNING: This should not be used in production with multiple instances
type InMemoryRefreshLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// NewInMemoryRefreshLock creates a new in-memory refresh lock
func NewInMemoryRefreshLock() *InMemoryRefreshLock {
	return &InMemoryRefreshLock{
		locks: make(map[string]lockEntry),
	}
}

// Acquire takes the lock if it is free or expired
func (l *InMemoryRefreshLock) Acquire(_ context.Context, tenantID, provider string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := tenantID + ":" + provider
	if entry, exists := l.locks[key]; exists && time.Now().Before(entry.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.locks[key] = lockEntry{token: token, expiresAt: time.Now().Add(ttl)}
	return token, true, nil
}

// Release releases the lock when the token still owns it
func (l *InMemoryRefreshLock) Release(_ context.Context, tenantID, provider, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := tenantID + ":" + provider
	if entry, exists := l.locks[key]; exists && entry.token == token {
		delete(l.locks, key)
	}
	return nil
}

// Ensure InMemoryRefreshLock implements RefreshLock
var _ RefreshLock = (*InMemoryRefreshLock)(nil)
