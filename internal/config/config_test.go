package config

import (
    "testing"
    "time"
)

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    c := LoadRateLimitConfig()
    if c.Capacity != 1 {
        t.Fatalf("capacity = %d, want 1", c.Capacity)
    }
    if c.TTL != 10*time.Second {
        t.Fatalf("ttl = %v, want 10s", c.TTL)
    }
}

func TestLoadCacheConfigMethods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head ,")
    c := LoadCacheConfig()
    if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
        t.Fatalf("methods = %v", c.Methods)
    }
}

func TestLoadDefaults(t *testing.T) {
    t.Setenv("DB_DRIVER", "sqlite")
    t.Setenv("DB_NAME", "test.db")
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
    t.Setenv("MINIO_USE_SSL", "yes")
    c := Load()
    if c.Port != "8080" || c.AccessTTLMin != 60 || c.Storage.Driver != "local" {
        t.Fatalf("unexpected defaults: %+v", c)
    }
    if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b.test" {
        t.Fatalf("cors = %v", c.CORSOrigins)
    }
    if !c.Storage.MinioUseSSL || c.Storage.URLExpiry != time.Hour {
        t.Fatalf("storage = %+v", c.Storage)
    }
}
