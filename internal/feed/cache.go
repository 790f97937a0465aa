package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/crusade-registration/internal/model"
)

// Entry is a cached feed snapshot.
type Entry struct {
	Events    []model.Event `json:"events"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// Fresh reports whether the entry is still within its TTL at now.
func (e Entry) Fresh(now time.Time) bool {
	return !e.FetchedAt.IsZero() && now.Before(e.FetchedAt.Add(e.TTL))
}

// Cache stores the most recent successful fetch.  Get returns ok=false
// when nothing has been stored yet; an expired entry is still returned so
// callers can fall back to it.
type Cache interface {
	Get(ctx context.Context) (Entry, bool, error)
	Set(ctx context.Context, e Entry) error
}

// MemoryCache keeps the entry in process.
type MemoryCache struct {
	mu    sync.RWMutex
	entry Entry
	ok    bool
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (m *MemoryCache) Get(_ context.Context) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entry, m.ok, nil
}

func (m *MemoryCache) Set(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entry, m.ok = e, true
	m.mu.Unlock()
	return nil
}

// RedisCache shares the entry between server instances.  The key carries
// no Redis expiry: stale entries must stay readable for the fallback path.
type RedisCache struct {
	rdb *redis.Client
	key string
}

// DefaultRedisKey is where the feed snapshot is stored.
const DefaultRedisKey = "crusades:feed"

func NewRedisCache(rdb *redis.Client, key string) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{rdb: rdb, key: key}
}

func (r *RedisCache) Get(ctx context.Context) (Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (r *RedisCache) Set(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key, raw, 0).Err()
}
