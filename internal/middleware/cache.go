package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/config"
)

// Headers that belong to one exchange and are never replayed from cache.
var uncachedHeaders = map[string]bool{
    "Content-Length":        true,
    echo.HeaderXRequestID:   true,
    "X-Cache":               true,
    echo.HeaderSetCookie:    true,
    "X-Ratelimit-Remaining": true,
}

// captureWriter forwards the response to the client and keeps a copy of
// the body. Once the body grows past limit the copy is dropped and the
// response is marked as not cacheable.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int64
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom keys on the concrete request path, so /v1/properties/A and
// /v1/properties/B never share an entry. The strategy decides whether the
// method and query string take part.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    path := r.URL.Path
    query := r.URL.RawQuery

    var tail string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "path":
        tail = path
    case "method_path":
        tail = r.Method + " " + path
    case "method_path_query":
        tail = r.Method + " " + path + "?" + query
    default: // "path_query"
        tail = path + "?" + query
    }
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// storableHeaders copies h without the per-exchange headers.
func storableHeaders(h http.Header) http.Header {
    out := make(http.Header, len(h))
    for k, vals := range h {
        if uncachedHeaders[http.CanonicalHeaderKey(k)] {
            continue
        }
        out[k] = append([]string(nil), vals...)
    }
    return out
}

// NewRedisCache caches successful public listing responses in Redis. Headers
// and body are stored together so a HIT replays the MISS that filled it,
// minus per-request headers such as X-Request-Id. Bodies larger than
// MaxBodyBytes are served but never stored. Entries are dropped by
// RedisPurger whenever listings change.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    limit := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if uncachedHeaders[http.CanonicalHeaderKey(k)] {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, err := c.Response().Write(body)
                    return err
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: limit}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow {
                return nil
            }
            payload, err := encodePayload(cw.status, storableHeaders(c.Response().Header()), cw.buf.Bytes())
            if err == nil {
                // The request context may already be cancelled once the body is sent.
                _ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err()
            }
            return nil
        }
    }
}

// RedisPurger deletes every cached response under the cache prefix. It is
// called after listing writes so readers never see stale listings for a
// full TTL.
type RedisPurger struct {
    rdb    *redis.Client
    prefix string
    log    *zap.Logger
}

func NewRedisPurger(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *RedisPurger {
    return &RedisPurger{rdb: rdb, prefix: cfg.Prefix, log: log}
}

// Purge is best effort: failures are logged and the entries expire on
// their own.
func (p *RedisPurger) Purge(ctx context.Context) {
    if p == nil || p.rdb == nil {
        return
    }
    var keys []string
    iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 100).Iterator()
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        p.log.Warn("cache: scan failed", zap.String("prefix", p.prefix), zap.Error(err))
        return
    }
    if len(keys) == 0 {
        return
    }
    if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
        p.log.Warn("cache: purge failed", zap.Int("keys", len(keys)), zap.Error(err))
    }
}
