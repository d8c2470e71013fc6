package content

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw, already validated response bodies keyed by request.
// Get returns ok=false on a miss; errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (body []byte, ok bool, err error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// DefaultMaxEntries bounds a MemoryCache created without WithMaxEntries.
const DefaultMaxEntries = 4096

type memoryEntry struct {
	key     string
	body    []byte
	expires time.Time
}

// MemoryCache is an in-process TTL cache holding at most maxEntries
// bodies. When full, Set evicts the least recently written entry.
// Expired entries are dropped on read and by Sweep.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is the oldest write
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxEntries sets the entry limit; n <= 0 keeps the default.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryCache) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	m := &MemoryCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[key]
	if !ok {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false, nil
	}
	e := el.Value.(*memoryEntry)
	if !m.now().Before(e.expires) {
		m.removeElement(el)
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false, nil
	}
	CacheHits.WithLabelValues("memory").Inc()
	return e.body, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cp := make([]byte, len(body))
	copy(cp, body)

	m.mu.Lock()
	defer m.mu.Unlock()
	expires := m.now().Add(ttl)
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.body, e.expires = cp, expires
		m.order.MoveToBack(el)
		return nil
	}
	m.entries[key] = m.order.PushBack(&memoryEntry{key: key, body: cp, expires: expires})
	for m.order.Len() > m.maxEntries {
		m.removeElement(m.order.Front())
		CacheEvictions.WithLabelValues("memory").Inc()
	}
	return nil
}

// Sweep removes every expired entry.
func (m *MemoryCache) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*memoryEntry).expires) {
			m.removeElement(el)
		}
		el = next
	}
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// removeElement deletes el from both indexes. Caller holds m.mu.
func (m *MemoryCache) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.entries, el.Value.(*memoryEntry).key)
}

// RedisCache stores bodies in Redis with native expiry.
type RedisCache struct {
	redis  *redis.Client
	prefix string
}

// NewRedisCache creates a cache backed by redisClient. Keys are namespaced
// with prefix.
func NewRedisCache(redisClient *redis.Client, prefix string) *RedisCache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisCache{redis: redisClient, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.redis.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, false, nil
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	CacheHits.WithLabelValues("redis").Inc()
	return data, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, r.prefix+key, body, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
