package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"taskflow/internal/config"
	"taskflow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Kinds of cached list pages.
const (
	KindTodos    = "todos"
	KindProjects = "projects"
)

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
// It returns nil when Redis is unreachable; callers then run uncached.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			_ = c.Close()
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// Pages caches rendered list pages per user and entity kind. Keys embed a
// per-(user, kind) version; Invalidate bumps the version so older pages are
// never read again and simply expire.
type Pages struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPages returns a page cache. A nil client disables caching.
func NewPages(rdb *redis.Client, ttl time.Duration) *Pages {
	return &Pages{rdb: rdb, ttl: ttl}
}

func versionKey(userID, kind string) string {
	return kind + ":" + userID + ":ver"
}

func pageKey(userID, kind, version, key string) string {
	return kind + ":" + userID + ":v" + version + ":" + key
}

func (p *Pages) version(ctx context.Context, userID, kind string) (string, error) {
	v, err := p.rdb.Get(ctx, versionKey(userID, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// Get returns the cached page bytes. Returns (nil, false) on miss or error.
func (p *Pages) Get(ctx context.Context, userID, kind, key string) ([]byte, bool) {
	if p == nil || p.rdb == nil {
		return nil, false
	}
	v, err := p.version(ctx, userID, kind)
	if err != nil {
		logger.Debug(ctx, "Redis get version failed", "error", err)
		return nil, false
	}
	b, err := p.rdb.Get(ctx, pageKey(userID, kind, v, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get page failed", "error", err)
		return nil, false
	}
	return b, true
}

// Version returns the current version of userID's pages of kind. Read it
// before loading a page and store the page under it: a write that lands in
// between bumps the version and leaves the page unreachable.
func (p *Pages) Version(ctx context.Context, userID, kind string) (string, bool) {
	if p == nil || p.rdb == nil {
		return "", false
	}
	v, err := p.version(ctx, userID, kind)
	if err != nil {
		logger.Debug(ctx, "Redis get version failed", "error", err)
		return "", false
	}
	return v, true
}

// Set stores page bytes under version with the configured TTL.
func (p *Pages) Set(ctx context.Context, userID, kind, version, key string, b []byte) {
	if p == nil || p.rdb == nil {
		return
	}
	if err := p.rdb.Set(ctx, pageKey(userID, kind, version, key), b, p.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set page failed", "error", err)
	}
}

// SetAsync stores the page in the background so the response is not delayed.
func (p *Pages) SetAsync(userID, kind, version, key string, b []byte) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.Set(ctx, userID, kind, version, key, b)
	}()
}

// Invalidate makes every cached page of kinds for userID unreachable.
func (p *Pages) Invalidate(ctx context.Context, userID string, kinds ...string) {
	if p == nil || p.rdb == nil {
		return
	}
	for _, kind := range kinds {
		if err := p.rdb.Incr(ctx, versionKey(userID, kind)).Err(); err != nil {
			logger.Debug(ctx, "Redis invalidate failed", "error", err, "kind", kind)
		}
	}
}

// Key builds a cache key fragment from pagination and a filter fragment.
func Key(page, limit int, filter string) string {
	return "page=" + strconv.Itoa(page) + ";limit=" + strconv.Itoa(limit) + ";" + filter
}
