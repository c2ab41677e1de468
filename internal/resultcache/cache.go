// Package resultcache is the server-side cache of query results. Entries are
// keyed by query key, expire after a maximum age, and belong to tags. A
// mutation invalidates tags; any entry recorded under an older generation of
// one of its tags is treated as absent.
//
// Concurrent misses on the same key and tag generation share one producer
// call. A producer that raced an invalidation still returns its result to its
// callers but the result is not stored.
package resultcache

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultMaxAge     = 5 * time.Minute
	DefaultMaxEntries = 1024
)

// Query identifies a cached result. Schema names the shape of the stored
// value; an entry stored under a different schema is a miss.
type Query struct {
	Key    string
	Schema string
	Tags   []string
}

// Observer receives cache events. Implementations must be safe for
// concurrent use.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheInvalidated(tag string)
}

// Options configures a Cache.
type Options struct {
	MaxAge     time.Duration
	MaxEntries int
	Logger     *zap.Logger
	Observer   Observer
}

type entry struct {
	schema string
	gens   map[string]uint64
	value  any
}

// Cache is a tag-invalidated, age-bounded LRU of query results.
type Cache struct {
	entries  *expirable.LRU[string, entry]
	group    singleflight.Group
	logger   *zap.Logger
	observer Observer

	mu   sync.Mutex
	gens map[string]uint64
}

// New creates a Cache.
func New(opts Options) *Cache {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{
		entries:  expirable.NewLRU[string, entry](opts.MaxEntries, nil, opts.MaxAge),
		logger:   opts.Logger,
		observer: opts.Observer,
		gens:     make(map[string]uint64),
	}
}

// Get returns the cached value for q, or calls produce on a miss and stores
// its result. Producer errors are returned and nothing is stored.
func (c *Cache) Get(ctx context.Context, q Query, produce func(context.Context) (any, error)) (any, error) {
	if e, ok := c.entries.Get(q.Key); ok && c.valid(e, q.Schema) {
		c.hit(q.Key)
		return e.value, nil
	}
	c.miss(q.Key)

	gens := c.snapshot(q.Tags)
	flight := flightKey(q.Key, q.Tags, gens)
	v, err, shared := c.group.Do(flight, func() (any, error) {
		// Shared callers must not inherit the first caller's cancellation.
		value, err := produce(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if c.current(gens) {
			c.entries.Add(q.Key, entry{schema: q.Schema, gens: gens, value: value})
		} else {
			c.logger.Debug("result superseded by invalidation, not stored", zap.String("key", q.Key))
		}
		return value, nil
	})
	if shared {
		c.logger.Debug("producer call shared", zap.String("key", q.Key))
	}
	return v, err
}

// Fetch is the typed form of Get. A stored value of the wrong type is
// treated as a miss.
func Fetch[T any](ctx context.Context, c *Cache, q Query, produce func(context.Context) (T, error)) (T, error) {
	wrapped := func(ctx context.Context) (any, error) { return produce(ctx) }
	v, err := c.Get(ctx, q, wrapped)
	if err != nil {
		var zero T
		return zero, err
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	c.entries.Remove(q.Key)
	return produce(ctx)
}

// Invalidate bumps the generation of each tag. Entries recorded under an
// older generation stop being served immediately and are dropped.
// Invalidating a tag that has no entries is a no-op for readers.
func (c *Cache) Invalidate(tags ...string) {
	c.mu.Lock()
	for _, tag := range tags {
		c.gens[tag]++
	}
	c.mu.Unlock()

	for _, tag := range tags {
		if c.observer != nil {
			c.observer.CacheInvalidated(tag)
		}
	}
	c.sweep()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of stored entries, including entries that are
// stale but not yet swept.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) valid(e entry, schema string) bool {
	if e.schema != schema {
		return false
	}
	return c.current(e.gens)
}

// current reports whether every tag generation in gens is still current.
func (c *Cache) current(gens map[string]uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tag, g := range gens {
		if c.gens[tag] != g {
			return false
		}
	}
	return true
}

func (c *Cache) snapshot(tags []string) map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	gens := make(map[string]uint64, len(tags))
	for _, tag := range tags {
		gens[tag] = c.gens[tag]
	}
	return gens
}

// sweep removes entries that no longer match their tag generations.
func (c *Cache) sweep() {
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && !c.current(e.gens) {
			c.entries.Remove(key)
		}
	}
}

func (c *Cache) hit(key string) {
	if c.observer != nil {
		c.observer.CacheHit(key)
	}
}

func (c *Cache) miss(key string) {
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}
}

// flightKey folds the tag generations into the singleflight key so a caller
// arriving after an invalidation never joins a producer that started before
// it.
func flightKey(key string, tags []string, gens map[string]uint64) string {
	sorted := slices.Clone(tags)
	slices.Sort(sorted)
	var sb strings.Builder
	sb.WriteString(key)
	for _, tag := range sorted {
		sb.WriteByte('|')
		sb.WriteString(tag)
		sb.WriteByte('@')
		sb.WriteString(strconv.FormatUint(gens[tag], 10))
	}
	return sb.String()
}

// String implements fmt.Stringer for debug logging.
func (q Query) String() string {
	return fmt.Sprintf("%s[%s]{%s}", q.Key, q.Schema, strings.Join(q.Tags, ","))
}
