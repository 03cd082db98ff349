package middleware

import (
    "bytes"
    "context"
    "encoding/json"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/kmerpro-marketplace/internal/config"
    "github.com/iliyamo/kmerpro-marketplace/internal/model"
    "github.com/iliyamo/kmerpro-marketplace/internal/session"
    "github.com/iliyamo/kmerpro-marketplace/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { rdb.Close() })
    return rdb
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func whoami(c echo.Context) error {
    caller := CallerFrom(c)
    return c.JSON(http.StatusOK, echo.Map{"id": caller.ID, "role": caller.Role})
}

func TestJWTAuth(t *testing.T) {
    revoker := session.NewMemoryRevoker()
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(secret, revoker))

    if rec := do(e, http.MethodGet, "/me", ""); rec.Code != http.StatusUnauthorized {
        t.Fatalf("no token: %d", rec.Code)
    }
    if rec := do(e, http.MethodGet, "/me", "garbage"); rec.Code != http.StatusUnauthorized {
        t.Fatalf("garbage token: %d", rec.Code)
    }

    tok, err := utils.NewAccessToken(secret, 42, "client", 5)
    if err != nil {
        t.Fatal(err)
    }
    rec := do(e, http.MethodGet, "/me", tok.Token)
    if rec.Code != http.StatusOK {
        t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
    }
    var body struct {
        ID   uint64 `json:"id"`
        Role string `json:"role"`
    }
    json.Unmarshal(rec.Body.Bytes(), &body)
    if body.ID != 42 || body.Role != "client" {
        t.Fatalf("caller = %+v", body)
    }

    revoker.Revoke(context.Background(), tok.JTI, time.Minute)
    if rec := do(e, http.MethodGet, "/me", tok.Token); rec.Code != http.StatusUnauthorized {
        t.Fatalf("revoked token: %d", rec.Code)
    }
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/admin", whoami, JWTAuth(secret, nil), RequireRole(model.RoleAdmin))

    client, _ := utils.NewAccessToken(secret, 1, "client", 5)
    admin, _ := utils.NewAccessToken(secret, 2, "admin", 5)
    if rec := do(e, http.MethodGet, "/admin", client.Token); rec.Code != http.StatusForbidden {
        t.Fatalf("client: %d", rec.Code)
    }
    if rec := do(e, http.MethodGet, "/admin", admin.Token); rec.Code != http.StatusOK {
        t.Fatalf("admin: %d", rec.Code)
    }
}

func TestCallerFromPublicRoute(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    if !CallerFrom(c).IsZero() {
        t.Fatal("expected zero caller")
    }
    if userID(c) != "guest" {
        t.Fatalf("userID = %s", userID(c))
    }
}

func TestTokenBucket(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, rdb))

    for i := 0; i < 2; i++ {
        if rec := do(e, http.MethodGet, "/ping", ""); rec.Code != http.StatusOK {
            t.Fatalf("request %d: %d", i, rec.Code)
        }
    }
    rec := do(e, http.MethodGet, "/ping", "")
    if rec.Code != http.StatusTooManyRequests {
        t.Fatalf("third request: %d", rec.Code)
    }
    if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
        t.Fatalf("headers = %v", rec.Header())
    }
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") },
        NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
    for i := 0; i < 3; i++ {
        if rec := do(e, http.MethodGet, "/ping", ""); rec.Code != http.StatusOK {
            t.Fatalf("request %d: %d", i, rec.Code)
        }
    }
}

func TestRateKeyStrategies(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/services/3", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/services/:id")
    c.Set(KeyUserID, uint64(7))

    cases := map[string]string{
        "ip":         "rl:ip:10.0.0.1",
        "user":       "rl:user:7",
        "user_route": "rl:user:7:route:GET /services/:id",
        "":           "rl:ip:10.0.0.1:user:7:route:GET /services/:id",
    }
    for strategy, want := range cases {
        got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
        if got != want {
            t.Errorf("%q: got %s, want %s", strategy, got, want)
        }
    }
}

func TestRedisCache(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 10}
    hits := 0
    e := echo.New()
    e.Use(NewRedisCache(cfg, rdb))
    e.GET("/categories", func(c echo.Context) error {
        hits++
        return c.JSON(http.StatusOK, echo.Map{"n": hits})
    })
    e.GET("/missing", func(c echo.Context) error {
        hits++
        return c.JSON(http.StatusNotFound, echo.Map{"error": "nope"})
    })

    first := do(e, http.MethodGet, "/categories", "")
    second := do(e, http.MethodGet, "/categories", "")
    if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
        t.Fatalf("X-Cache = %s then %s", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
    }
    if first.Body.String() != second.Body.String() || hits != 1 {
        t.Fatalf("bodies %q / %q, hits %d", first.Body, second.Body, hits)
    }
    if !strings.HasPrefix(second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
        t.Fatalf("content type = %s", second.Header().Get(echo.HeaderContentType))
    }
    if do(e, http.MethodGet, "/categories?page=2", "").Header().Get("X-Cache") != "MISS" {
        t.Fatal("query string must be part of the key")
    }

    do(e, http.MethodGet, "/missing", "")
    if rec := do(e, http.MethodGet, "/missing", ""); rec.Header().Get("X-Cache") != "MISS" {
        t.Fatal("non-200 responses must not be cached")
    }
}

func TestCacheSkipsOversizedBodies(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8}
    e := echo.New()
    e.Use(NewRedisCache(cfg, rdb))
    e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, strings.Repeat("x", 64)) })

    do(e, http.MethodGet, "/big", "")
    rec := do(e, http.MethodGet, "/big", "")
    if rec.Header().Get("X-Cache") != "MISS" || rec.Body.Len() != 64 {
        t.Fatalf("X-Cache = %s, len %d", rec.Header().Get("X-Cache"), rec.Body.Len())
    }
}

func TestRequestLog(t *testing.T) {
    var buf bytes.Buffer
    l := slog.New(slog.NewJSONHandler(&buf, nil))
    e := echo.New()
    e.Use(RequestLog(l))
    e.GET("/services/:id", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "service not found") })

    rec := do(e, http.MethodGet, "/services/9", "")
    if rec.Code != http.StatusNotFound {
        t.Fatalf("status = %d", rec.Code)
    }
    var entry map[string]any
    if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
        t.Fatalf("log line %q: %v", buf.String(), err)
    }
    if entry["msg"] != "http_request" || entry["route"] != "/services/:id" || entry["status"] != float64(404) || entry["user_id"] != "guest" {
        t.Fatalf("entry = %v", entry)
    }
}
