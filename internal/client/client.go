// Package client reads the catalog from a bunbetsu server the way the web
// client does: every request goes through the edge cache interceptor,
// catalog payloads are kept in the versioned client cache, and search runs
// locally over the cached item list.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/cachestore"
	"github.com/mesh-intelligence/bunbetsu/internal/clientcache"
	"github.com/mesh-intelligence/bunbetsu/internal/edgecache"
	"github.com/mesh-intelligence/bunbetsu/internal/search"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Client cache keys and payload schemas.
const (
	KeyItems      = "items"
	KeyCategories = "categories"

	SchemaItems      = "item-views/v1"
	SchemaCategories = "categories/v1"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Storage backs both the edge cache and the client cache. Defaults to
	// in-memory storage.
	Storage cachestore.Storage
	// Edge overrides the interceptor configuration. BaseURL is filled in.
	Edge      edgecache.Config
	Prefix    string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client is a caching catalog reader.
type Client struct {
	baseURL string
	http    *http.Client
	edge    *edgecache.Interceptor
	cache   *clientcache.Cache
	logger  *zap.Logger

	indexMu      sync.Mutex
	index        *search.Index
	indexVersion int64
}

// New creates a Client for opts.BaseURL.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Storage == nil {
		opts.Storage = cachestore.NewMemory()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	opts.Edge.BaseURL = base

	edge := edgecache.New(opts.Storage, opts.Transport, opts.Edge, opts.Logger)
	hc := &http.Client{Transport: edge, Timeout: opts.Timeout}
	source := &clientcache.HTTPVersionSource{BaseURL: base, Client: hc}

	return &Client{
		baseURL: base,
		http:    hc,
		edge:    edge,
		cache:   clientcache.New(opts.Storage, source, opts.Prefix, opts.Logger),
		logger:  opts.Logger.Named("client"),
	}
}

// Edge returns the interceptor, for Install and Activate.
func (c *Client) Edge() *edgecache.Interceptor {
	return c.edge
}

// Items returns every item view, from the client cache when the server's
// version has not changed since it was stored.
func (c *Client) Items(ctx context.Context) (types.Snapshot[types.ItemView], error) {
	return fetch[types.ItemView](ctx, c, KeyItems, SchemaItems, "/items")
}

// Categories returns every category.
func (c *Client) Categories(ctx context.Context) (types.Snapshot[types.Category], error) {
	return fetch[types.Category](ctx, c, KeyCategories, SchemaCategories, "/categories")
}

// Search ranks the item list against query locally. The index is rebuilt
// only when the item list's version changes.
func (c *Client) Search(ctx context.Context, query string) (types.Snapshot[types.ItemView], error) {
	snap, err := c.Items(ctx)
	if err != nil {
		return snap, err
	}
	c.indexMu.Lock()
	if c.index == nil || c.indexVersion != snap.Version {
		c.index = search.BuildIndex(snap.Rows)
		c.indexVersion = snap.Version
	}
	ix := c.index
	c.indexMu.Unlock()
	return types.Snapshot[types.ItemView]{Version: snap.Version, Rows: ix.Search(query)}, nil
}

// Close waits for background cache cleanup.
func (c *Client) Close() {
	c.cache.Wait()
}

func fetch[T any](ctx context.Context, c *Client, key, schema, path string) (types.Snapshot[T], error) {
	if entry, ok := c.cache.Read(ctx, key, schema); ok {
		var rows []T
		if err := json.Unmarshal(entry.Payload, &rows); err == nil {
			return types.Snapshot[T]{Version: entry.Version, Rows: rows}, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	body, version, err := c.get(ctx, path)
	if err != nil {
		return types.Snapshot[T]{}, err
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return types.Snapshot[T]{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	// Stored under the version the server read the rows at.
	entry := clientcache.Entry{Schema: schema, Version: version, Payload: body}
	if err := c.cache.Write(ctx, key, entry); err != nil {
		c.logger.Warn("client cache write failed", zap.String("key", key), zap.Error(err))
	}
	return types.Snapshot[T]{Version: version, Rows: rows}, nil
}

// get fetches path and returns the body with the response's catalog
// version.
func (c *Client) get(ctx context.Context, path string) ([]byte, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("GET %s: status %d (%s)", path, resp.StatusCode, resp.Header.Get(edgecache.HeaderCache))
	}
	version, err := strconv.ParseInt(resp.Header.Get(clientcache.HeaderVersion), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: missing catalog version header", path)
	}
	return body, version, nil
}
