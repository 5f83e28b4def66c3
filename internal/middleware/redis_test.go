package middleware

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func cacheConfig(maxBody int) config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          time.Minute,
        KeyStrategy:  "path_query",
        Prefix:       "cache:properties",
        MaxBodyBytes: maxBody,
    }
}

// listingServer serves /v1/properties/:id and counts handler calls.
func listingServer(cfg config.CacheConfig, rdb *redis.Client, body func(id string) string) (*echo.Echo, *int) {
    calls := 0
    e := echo.New()
    e.Use(echomw.RequestID())
    e.GET("/v1/properties/:id", func(c echo.Context) error {
        calls++
        return c.JSONBlob(http.StatusOK, []byte(body(c.Param("id"))))
    }, NewRedisCache(cfg, rdb))
    return e, &calls
}

func TestCacheKeepsListingsApart(t *testing.T) {
    _, rdb := newRedis(t)
    e, calls := listingServer(cacheConfig(1<<20), rdb, func(id string) string {
        return `{"id":"` + id + `"}`
    })

    a := serve(e, http.MethodGet, "/v1/properties/a1", "")
    require.Equal(t, "MISS", a.Header().Get("X-Cache"))
    require.JSONEq(t, `{"id":"a1"}`, a.Body.String())

    b := serve(e, http.MethodGet, "/v1/properties/b2", "")
    require.Equal(t, "MISS", b.Header().Get("X-Cache"))
    require.JSONEq(t, `{"id":"b2"}`, b.Body.String())

    again := serve(e, http.MethodGet, "/v1/properties/a1", "")
    require.Equal(t, "HIT", again.Header().Get("X-Cache"))
    require.JSONEq(t, `{"id":"a1"}`, again.Body.String())
    require.Equal(t, echo.MIMEApplicationJSON, again.Header().Get(echo.HeaderContentType))
    require.Equal(t, 2, *calls)
}

func TestCacheHitGetsItsOwnRequestID(t *testing.T) {
    _, rdb := newRedis(t)
    e, _ := listingServer(cacheConfig(1<<20), rdb, func(id string) string { return `{}` })

    first := serve(e, http.MethodGet, "/v1/properties/a1", "")
    hit := serve(e, http.MethodGet, "/v1/properties/a1", "")
    require.Equal(t, "HIT", hit.Header().Get("X-Cache"))

    ids := hit.Header().Values(echo.HeaderXRequestID)
    require.Len(t, ids, 1)
    require.NotEqual(t, first.Header().Get(echo.HeaderXRequestID), ids[0])
    require.Len(t, hit.Header().Values("X-Cache"), 1)
}

func TestCacheSkipsBodiesOverLimit(t *testing.T) {
    mr, rdb := newRedis(t)
    long := `{"description":"` + strings.Repeat("x", 200) + `"}`
    e, calls := listingServer(cacheConfig(64), rdb, func(string) string { return long })

    for i := 0; i < 2; i++ {
        rec := serve(e, http.MethodGet, "/v1/properties/a1", "")
        require.Equal(t, http.StatusOK, rec.Code)
        require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
        require.JSONEq(t, long, rec.Body.String())
    }
    require.Equal(t, 2, *calls)
    require.Empty(t, mr.Keys())
}

func TestCacheSkipsErrorResponses(t *testing.T) {
    mr, rdb := newRedis(t)
    e := echo.New()
    e.GET("/v1/properties/:id", func(c echo.Context) error {
        return c.JSON(http.StatusNotFound, map[string]string{"message": "Property not found."})
    }, NewRedisCache(cacheConfig(1<<20), rdb))

    serve(e, http.MethodGet, "/v1/properties/gone", "")
    require.Empty(t, mr.Keys())
}

func TestPurgeDropsOnlyCachedListings(t *testing.T) {
    mr, rdb := newRedis(t)
    cfg := cacheConfig(1 << 20)
    e, calls := listingServer(cfg, rdb, func(id string) string { return `{"id":"` + id + `"}` })

    serve(e, http.MethodGet, "/v1/properties/a1", "")
    serve(e, http.MethodGet, "/v1/properties/b2", "")
    require.NoError(t, mr.Set("rl:POST /v1/auth/login:10.0.0.1", "kept"))
    require.Len(t, mr.Keys(), 3)

    NewRedisPurger(cfg, rdb, zap.NewNop()).Purge(context.Background())
    require.Equal(t, []string{"rl:POST /v1/auth/login:10.0.0.1"}, mr.Keys())

    rec := serve(e, http.MethodGet, "/v1/properties/a1", "")
    require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    require.Equal(t, 3, *calls)
}

func login(e *echo.Echo, email string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
        strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestTokenBucketLimitsPerEmail(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       3,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_email",
        Prefix:         "rl",
    }
    e := echo.New()
    e.POST("/v1/auth/login", func(c echo.Context) error {
        var req struct {
            Email string `json:"email"`
        }
        if err := c.Bind(&req); err != nil {
            return err
        }
        return c.String(http.StatusOK, req.Email)
    }, NewTokenBucket(cfg, rdb, zap.NewNop()))

    for i := 0; i < cfg.Capacity; i++ {
        rec := login(e, "ann@example.com")
        require.Equal(t, http.StatusOK, rec.Code)
        require.Equal(t, "ann@example.com", rec.Body.String())
    }

    blocked := login(e, "ann@example.com")
    require.Equal(t, http.StatusTooManyRequests, blocked.Code)
    require.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
    require.NotEmpty(t, blocked.Header().Get("Retry-After"))
    var body struct {
        Message    string `json:"message"`
        RetryAfter int    `json:"retry_after"`
    }
    require.NoError(t, json.Unmarshal(blocked.Body.Bytes(), &body))
    require.Equal(t, "Too many requests. Please try again later.", body.Message)
    require.Positive(t, body.RetryAfter)

    // Another account from the same address still gets through.
    require.Equal(t, http.StatusOK, login(e, "bob@example.com").Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
    mr, rdb := newRedis(t)
    e := echo.New()
    e.POST("/v1/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1,
            RefillInterval: time.Minute, TTL: time.Hour, Prefix: "rl"}, rdb, zap.NewNop()))

    mr.Close()
    for i := 0; i < 3; i++ {
        require.Equal(t, http.StatusNoContent, login(e, "ann@example.com").Code)
    }
}
