package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/config"
)

// tokenBucketScript refills and takes one token atomically.
// KEYS[1] bucket; ARGV now_ms, capacity, refill_tokens, interval_ms, ttl_ms.
// Returns {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
  tokens = capacity
  stamp = now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  stamp = stamp + steps * interval
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {allowed, tokens, wait}
`)

// maxEmailPeek bounds how much of a request body is read to find the email.
const maxEmailPeek = 16 << 10

type bucketResult struct {
    allowed    bool
    remaining  int64
    retryAfter time.Duration
}

type tokenBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

func (b tokenBucket) take(ctx context.Context, key string, now time.Time) (bucketResult, error) {
    raw, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
        now.UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        b.cfg.TTL.Milliseconds(),
    ).Int64Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(raw) != 3 {
        return bucketResult{}, fmt.Errorf("ratelimit: unexpected script reply %v", raw)
    }
    return bucketResult{
        allowed:    raw[0] == 1,
        remaining:  raw[1],
        retryAfter: time.Duration(raw[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket throttles the account endpoints with a token bucket kept in
// Redis so the limit holds across API instances. By default each bucket is
// scoped to the route, the client IP and the email the request names, so a
// client hammering one address cannot lock out other users behind the same
// NAT. Redis errors fail open. Without a client the middleware is a no-op.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    bucket := tokenBucket{cfg: cfg, rdb: rdb}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            res, err := bucket.take(c.Request().Context(), key, time.Now())
            if err != nil {
                log.Warn("ratelimit: redis error", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if res.allowed {
                return next(c)
            }

            secs := int((res.retryAfter + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.Info("ratelimit: blocked", zap.String("key", key), zap.Duration("retry_after", res.retryAfter))
            }
            return c.JSON(http.StatusTooManyRequests, map[string]any{
                "message":     "Too many requests. Please try again later.",
                "retry_after": secs,
            })
        }
    }
}

// rateKey builds prefix:route:ip[:email]. The email part is a hash of the
// normalised address and is left out when the request carries none.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        return cfg.Prefix + ":" + ip
    case "ip_route":
        return cfg.Prefix + ":" + route + ":" + ip
    default: // "ip_email"
        key := cfg.Prefix + ":" + route + ":" + ip
        if email := submittedEmail(c); email != "" {
            sum := sha1.Sum([]byte(email))
            key += fmt.Sprintf(":%x", sum[:8])
        }
        return key
    }
}

// submittedEmail returns the lower-cased email from a JSON body or the
// email query parameter. The body is restored for the handler.
func submittedEmail(c echo.Context) string {
    r := c.Request()
    email := r.URL.Query().Get("email")
    if email == "" && r.Body != nil && r.Body != http.NoBody &&
        strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
        body, err := io.ReadAll(io.LimitReader(r.Body, maxEmailPeek+1))
        rest := r.Body
        r.Body = struct {
            io.Reader
            io.Closer
        }{io.MultiReader(bytes.NewReader(body), rest), rest}
        if err == nil && len(body) <= maxEmailPeek {
            var peek struct {
                Email string `json:"email"`
            }
            if json.Unmarshal(body, &peek) == nil {
                email = peek.Email
            }
        }
    }
    return strings.ToLower(strings.TrimSpace(email))
}
