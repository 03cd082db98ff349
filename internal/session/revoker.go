// Package session tracks access tokens revoked by logout until they would
// have expired anyway.  Tokens are identified by their jti claim.
package session

import (
    "context"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// TokenRevoker tracks revoked tokens until expiry.
type TokenRevoker interface {
    Revoke(ctx context.Context, jti string, ttl time.Duration) error
    IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker keeps revoked tokens in-memory (single instance only).
type MemoryRevoker struct {
    mu     sync.Mutex
    tokens map[string]time.Time
    now    func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
    return &MemoryRevoker{tokens: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti as revoked for ttl.  Non-positive ttls are ignored
// since the token is already expired.
func (r *MemoryRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
    if ttl <= 0 || jti == "" {
        return nil
    }
    r.mu.Lock()
    r.tokens[jti] = r.now().Add(ttl)
    r.mu.Unlock()
    return nil
}

func (r *MemoryRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    expiry, ok := r.tokens[jti]
    if !ok {
        return false, nil
    }
    if r.now().After(expiry) {
        delete(r.tokens, jti)
        return false, nil
    }
    return true, nil
}

// RedisRevoker stores revoked tokens in Redis with TTL so every API
// instance sees the same list.
type RedisRevoker struct {
    client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
    return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
    if ttl <= 0 || jti == "" {
        return nil
    }
    ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    return r.client.Set(ctx, revocationKey(jti), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
    ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    n, err := r.client.Exists(ctx, revocationKey(jti)).Result()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

func revocationKey(jti string) string {
    return "revoked:" + jti
}

// New returns a Redis revoker when rdb is set and the in-memory one
// otherwise.
func New(rdb *redis.Client) TokenRevoker {
    if rdb == nil {
        return NewMemoryRevoker()
    }
    return NewRedisRevoker(rdb)
}
