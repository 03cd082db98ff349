package session

import (
    "context"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
)

func TestMemoryRevokerExpires(t *testing.T) {
    r := NewMemoryRevoker()
    now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
    r.now = func() time.Time { return now }
    ctx := context.Background()

    if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
        t.Fatalf("revoke: %v", err)
    }
    if ok, _ := r.IsRevoked(ctx, "jti-1"); !ok {
        t.Fatalf("expected jti-1 revoked")
    }
    now = now.Add(2 * time.Minute)
    if ok, _ := r.IsRevoked(ctx, "jti-1"); ok {
        t.Fatalf("expected jti-1 to expire")
    }
    if err := r.Revoke(ctx, "jti-2", 0); err != nil {
        t.Fatalf("revoke zero ttl: %v", err)
    }
    if ok, _ := r.IsRevoked(ctx, "jti-2"); ok {
        t.Fatalf("zero ttl should not revoke")
    }
}

func TestRedisRevoker(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    defer rdb.Close()

    r := New(rdb)
    ctx := context.Background()
    if err := r.Revoke(ctx, "abc", time.Minute); err != nil {
        t.Fatalf("revoke: %v", err)
    }
    if ok, err := r.IsRevoked(ctx, "abc"); err != nil || !ok {
        t.Fatalf("expected revoked, got %v %v", ok, err)
    }
    if ttl := mr.TTL("revoked:abc"); ttl <= 0 || ttl > time.Minute {
        t.Fatalf("unexpected ttl %v", ttl)
    }
    mr.FastForward(2 * time.Minute)
    if ok, _ := r.IsRevoked(ctx, "abc"); ok {
        t.Fatalf("expected key to expire")
    }
}
