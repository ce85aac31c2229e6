package mw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CachedResponse is a stored GET response.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Backend stores cached responses by request URI.
type Backend interface {
	Get(ctx context.Context, key string) (CachedResponse, bool)
	Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration)
}

// MemoryBackend keeps responses in process.
type MemoryBackend struct {
	store *cache.Cache
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{store: cache.New(ttl, 2*ttl)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (CachedResponse, bool) {
	v, found := m.store.Get(key)
	if !found {
		return CachedResponse{}, false
	}
	return v.(CachedResponse), true
}

func (m *MemoryBackend) Set(_ context.Context, key string, resp CachedResponse, ttl time.Duration) {
	m.store.Set(key, resp, ttl)
}

// RedisBackend shares responses between replicas. Redis failures degrade to a miss.
type RedisBackend struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisBackend(client *redis.Client, prefix string, log *zap.Logger) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, log: log.Named("cache")}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (CachedResponse, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return CachedResponse{}, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		r.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return CachedResponse{}, false
	}
	return resp, true
}

func (r *RedisBackend) Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) {
	data, err := json.Marshal(resp)
	if err != nil {
		r.log.Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		r.log.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated anonymous GET requests from backend. Signed-in and
// privileged callers always reach the handler. It must run after Caller.
func Cache(backend Backend, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if c.Request.Method != http.MethodGet || !caller.Anonymous() || caller.Privileged() {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if cached, found := backend.Get(c.Request.Context(), key); found {
			for k, v := range cached.Header {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.Status)
			c.Writer.Write(cached.Body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			response := CachedResponse{
				Status: blw.Status(),
				Header: blw.Header().Clone(),
				Body:   blw.body.Bytes(),
			}
			backend.Set(c.Request.Context(), key, response, duration)
		}
	}
}
