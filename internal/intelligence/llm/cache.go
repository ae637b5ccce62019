package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/database/redis"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// ResponseCache stores model answers by prompt key.
type ResponseCache interface {
	// Get returns ok == false on a miss.  err is reserved for backend
	// failures.
	Get(ctx context.Context, key string) (answer string, ok bool, err error)
	Set(ctx context.Context, key, answer string) error
	Name() string
}

// cacheKeyPrefix namespaces model answers inside a shared store.
const cacheKeyPrefix = "llm:"

// CacheKey derives a stable key from the parts of a request that determine
// the answer.
func CacheKey(req *GenerateRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(req.Operation))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// In-process LRU
// ─────────────────────────────────────────────────────────────────────────────

type memoryEntry struct {
	answer  string
	expires time.Time
}

// MemoryResponseCache is a size-bounded LRU with a per-entry TTL.
type MemoryResponseCache struct {
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

func NewMemoryResponseCache(size int, ttl time.Duration) (*MemoryResponseCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to create lru cache")
	}
	return &MemoryResponseCache{lru: c, ttl: ttl, now: time.Now}, nil
}

func (m *MemoryResponseCache) Name() string { return "memory" }

func (m *MemoryResponseCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return "", false, nil
	}
	e := v.(memoryEntry)
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.lru.Remove(key)
		return "", false, nil
	}
	return e.answer, true, nil
}

func (m *MemoryResponseCache) Set(_ context.Context, key, answer string) error {
	e := memoryEntry{answer: answer}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *MemoryResponseCache) Len() int { return m.lru.Len() }

// ─────────────────────────────────────────────────────────────────────────────
// Redis
// ─────────────────────────────────────────────────────────────────────────────

// RedisResponseCache shares answers between replicas.
type RedisResponseCache struct {
	cache redis.Cache
	ttl   time.Duration
}

func NewRedisResponseCache(cache redis.Cache, ttl time.Duration) *RedisResponseCache {
	return &RedisResponseCache{cache: cache, ttl: ttl}
}

func (r *RedisResponseCache) Name() string { return "redis" }

func (r *RedisResponseCache) Get(ctx context.Context, key string) (string, bool, error) {
	var answer string
	err := r.cache.Get(ctx, key, &answer)
	if stderrors.Is(err, redis.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return answer, true, nil
}

func (r *RedisResponseCache) Set(ctx context.Context, key, answer string) error {
	return r.cache.Set(ctx, key, answer, r.ttl)
}

// Flush drops every cached answer and reports how many were removed.
func (r *RedisResponseCache) Flush(ctx context.Context) (int64, error) {
	return r.cache.DeleteByPrefix(ctx, cacheKeyPrefix)
}

// Ping lets the readiness probe check the backing store.
func (r *RedisResponseCache) Ping(ctx context.Context) error {
	return r.cache.Ping(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// CachedGateway
// ─────────────────────────────────────────────────────────────────────────────

// CachedGateway answers repeated prompts from a ResponseCache and collapses
// concurrent identical requests into one upstream call.  Cache failures are
// logged and never fail the request.  Errors are not cached.
//
// The shared upstream call is detached from any single caller: it runs until
// it finishes or callTimeout elapses, while each caller stops waiting when
// its own context is done.
type CachedGateway struct {
	next        Gateway
	cache       ResponseCache
	logger      logging.Logger
	metrics     *prom.AppMetrics
	callTimeout time.Duration
	group       singleflight.Group
}

type CachedGatewayOption func(*CachedGateway)

// WithCallTimeout bounds the shared upstream call.
func WithCallTimeout(d time.Duration) CachedGatewayOption {
	return func(g *CachedGateway) {
		if d > 0 {
			g.callTimeout = d
		}
	}
}

func NewCachedGateway(next Gateway, cache ResponseCache, logger logging.Logger, metrics *prom.AppMetrics, opts ...CachedGatewayOption) *CachedGateway {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prom.NewNoopAppMetrics()
	}
	g := &CachedGateway{next: next, cache: cache, logger: logger, metrics: metrics, callTimeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *CachedGateway) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	key := CacheKey(req)
	log := logging.ForContext(ctx, g.logger)

	answer, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		log.Warn("response cache read failed", logging.String("cache", g.cache.Name()), logging.Err(err))
	}
	prom.RecordCacheAccess(g.metrics, g.cache.Name(), ok)
	if ok {
		return answer, nil
	}

	ch := g.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.callTimeout)
		defer cancel()

		answer, err := g.next.Generate(callCtx, req)
		if err != nil {
			return "", err
		}
		if err := g.cache.Set(callCtx, key, answer); err != nil {
			log.Warn("response cache write failed", logging.String("cache", g.cache.Name()), logging.Err(err))
		}
		return answer, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", errors.Upstream(ctx.Err())
	}
}

// Unwrap returns the wrapped gateway.
func (g *CachedGateway) Unwrap() Gateway { return g.next }
