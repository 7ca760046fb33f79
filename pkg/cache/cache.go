package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"deal-finder-api/internal/models"
)

const keyPrefix = "deals:"

type Config struct {
	URL string
	DB  int
	TTL time.Duration
}

// RedisCache stores validated deal lists by normalized product query.
// A nil *RedisCache is valid and behaves as an unavailable cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
	errors atomic.Uint64
}

// NewRedisCache connects to Redis and returns nil when it cannot be reached or
// caching is disabled (non-positive TTL).
func NewRedisCache(ctx context.Context, cfg Config) *RedisCache {
	if cfg.TTL <= 0 {
		log.Printf("Deal cache disabled (CACHE_TTL=%v)", cfg.TTL)
		return nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("Failed to parse Redis URL: %v", err)
		return nil
	}
	opt.DB = cfg.DB

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Redis connection failed: %v", err)
		client.Close()
		return nil
	}

	log.Printf("Redis connected successfully, DB: %d, TTL: %v", cfg.DB, cfg.TTL)
	return New(client, cfg.TTL)
}

func New(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Key normalizes a product query into its cache key.
func Key(query string) string {
	return keyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// GetDeals returns the cached deals for query. found is false on a miss.
func (r *RedisCache) GetDeals(ctx context.Context, query string) (deals []models.Deal, found bool, err error) {
	if !r.IsAvailable() {
		return nil, false, fmt.Errorf("redis client not available")
	}

	val, err := r.client.Get(ctx, Key(query)).Bytes()
	if err == redis.Nil {
		r.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		r.errors.Add(1)
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	if err := json.Unmarshal(val, &deals); err != nil {
		r.errors.Add(1)
		return nil, false, fmt.Errorf("json unmarshal error: %w", err)
	}

	r.hits.Add(1)
	return deals, true, nil
}

func (r *RedisCache) SetDeals(ctx context.Context, query string, deals []models.Deal) error {
	if !r.IsAvailable() {
		return fmt.Errorf("redis client not available")
	}

	data, err := json.Marshal(deals)
	if err != nil {
		r.errors.Add(1)
		return fmt.Errorf("json marshal error: %w", err)
	}

	if err := r.client.Set(ctx, Key(query), data, r.ttl).Err(); err != nil {
		r.errors.Add(1)
		return fmt.Errorf("redis set error: %w", err)
	}

	r.sets.Add(1)
	return nil
}

func (r *RedisCache) Close() error {
	if !r.IsAvailable() {
		return nil
	}
	return r.client.Close()
}

func (r *RedisCache) IsAvailable() bool {
	return r != nil && r.client != nil
}

func (r *RedisCache) GetStats(ctx context.Context) map[string]interface{} {
	if !r.IsAvailable() {
		return map[string]interface{}{
			"status": "unavailable",
		}
	}

	hits, misses := r.hits.Load(), r.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"status":      "connected",
		"ttl_seconds": int(r.ttl.Seconds()),
		"hits":        hits,
		"misses":      misses,
		"sets":        r.sets.Load(),
		"errors":      r.errors.Load(),
		"hit_rate":    hitRate,
		"memory_info": r.client.Info(ctx, "memory").Val(),
	}
}

// GetAllKeys lists every deal key currently cached.
func (r *RedisCache) GetAllKeys(ctx context.Context) []string {
	if !r.IsAvailable() {
		return []string{}
	}

	keys := []string{}
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("Redis scan error: %v", err)
	}
	return keys
}

// FlushCache deletes only the deal keys, leaving the rest of the database alone.
func (r *RedisCache) FlushCache(ctx context.Context) (int, error) {
	if !r.IsAvailable() {
		return 0, fmt.Errorf("redis client not available")
	}

	keys := r.GetAllKeys(ctx)
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.errors.Add(1)
		return 0, fmt.Errorf("redis delete error: %w", err)
	}
	return len(keys), nil
}

func (r *RedisCache) GetKeyTTL(ctx context.Context, key string) time.Duration {
	if !r.IsAvailable() {
		return 0
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0
	}
	return ttl
}
