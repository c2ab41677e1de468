// Package clientcache is the client's persistent cache of catalog
// responses. Entries live in a namespace named after the catalog version
// they were produced at (<prefix>-v<version>). A read first asks the server
// for the current version and only looks in that namespace, so a version
// bump makes every older entry unreachable at once. Older namespaces are
// deleted in the background after a hit.
package clientcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/cachestore"
)

// DefaultPrefix names client data namespaces.
const DefaultPrefix = "bunbetsu-data"

// Headers carried by stored entries.
const (
	HeaderVersion = "X-Catalog-Version"
	HeaderSchema  = "X-Cache-Schema"
)

// gcTimeout bounds one background cleanup pass.
const gcTimeout = 30 * time.Second

// Namespace returns the namespace name for a catalog version.
func Namespace(prefix string, version int64) string {
	return prefix + "-v" + strconv.FormatInt(version, 10)
}

// VersionSource reports the server's current catalog version.
type VersionSource interface {
	CurrentVersion(ctx context.Context) (int64, error)
}

// Entry is a cached payload with the catalog version it was produced at and
// the schema of the payload.
type Entry struct {
	Schema  string          `json:"schema"`
	Version int64           `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// Cache reads and writes entries in version namespaces.
type Cache struct {
	storage cachestore.Storage
	source  VersionSource
	prefix  string
	logger  *zap.Logger

	gc        sync.WaitGroup
	gcRunning atomic.Bool
}

// New creates a Cache. An empty prefix uses DefaultPrefix.
func New(storage cachestore.Storage, source VersionSource, prefix string, logger *zap.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		storage: storage,
		source:  source,
		prefix:  prefix,
		logger:  logger.Named("clientcache"),
	}
}

// Read returns the entry stored for key in the current version's
// namespace. Any failure, including an unreachable version source, is a
// miss. An entry with a different schema is a miss.
func (c *Cache) Read(ctx context.Context, key, schema string) (Entry, bool) {
	version, err := c.source.CurrentVersion(ctx)
	if err != nil {
		c.logger.Debug("version unavailable, treating read as miss", zap.String("key", key), zap.Error(err))
		return Entry{}, false
	}
	ns := Namespace(c.prefix, version)

	has, err := c.storage.Has(ctx, ns)
	if err != nil {
		c.logger.Warn("checking namespace failed", zap.String("namespace", ns), zap.Error(err))
		return Entry{}, false
	}
	if !has {
		return Entry{}, false
	}
	bucket, err := c.storage.Open(ctx, ns)
	if err != nil {
		c.logger.Warn("opening namespace failed", zap.String("namespace", ns), zap.Error(err))
		return Entry{}, false
	}
	stored, ok, err := bucket.Match(ctx, key)
	if err != nil {
		c.logger.Warn("cache match failed", zap.String("namespace", ns), zap.String("key", key), zap.Error(err))
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}

	entry := Entry{
		Schema:  stored.Header.Get(HeaderSchema),
		Payload: stored.Body,
	}
	entry.Version, _ = strconv.ParseInt(stored.Header.Get(HeaderVersion), 10, 64)
	if entry.Schema != schema || entry.Version != version {
		return Entry{}, false
	}

	c.collect(ctx, ns)
	return entry, true
}

// Write stores e under key in the namespace of e.Version, which must be the
// version the payload was produced at, never a version observed later.
func (c *Cache) Write(ctx context.Context, key string, e Entry) error {
	if e.Version < 0 {
		return fmt.Errorf("entry for %q has invalid version %d", key, e.Version)
	}
	ns := Namespace(c.prefix, e.Version)
	bucket, err := c.storage.Open(ctx, ns)
	if err != nil {
		return fmt.Errorf("opening namespace %q: %w", ns, err)
	}
	resp := &cachestore.Response{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Type": {"application/json"},
			HeaderVersion:  {strconv.FormatInt(e.Version, 10)},
			HeaderSchema:   {e.Schema},
		},
		Body:     e.Payload,
		StoredAt: time.Now(),
	}
	if err := bucket.Put(ctx, key, resp); err != nil {
		return fmt.Errorf("storing %q in %q: %w", key, ns, err)
	}
	return nil
}

// Wait blocks until background cleanup finishes.
func (c *Cache) Wait() {
	c.gc.Wait()
}

// collect starts a background pass deleting every namespace with this
// cache's prefix except current. Only one pass runs at a time.
func (c *Cache) collect(ctx context.Context, current string) {
	if !c.gcRunning.CompareAndSwap(false, true) {
		return
	}
	c.gc.Add(1)
	go func() {
		defer c.gc.Done()
		defer c.gcRunning.Store(false)

		gcCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gcTimeout)
		defer cancel()
		deleted, err := cachestore.DeleteExcept(gcCtx, c.storage, c.prefix+"-v", current)
		if err != nil {
			c.logger.Warn("namespace cleanup incomplete", zap.Error(err))
		}
		if len(deleted) > 0 {
			c.logger.Debug("deleted stale namespaces", zap.Strings("namespaces", deleted))
		}
	}()
}
