// Package catalog coordinates catalog reads and mutations. Reads go through
// the result cache. A mutation runs its writes and the version bump in one
// store transaction, then invalidates the result cache before it reports
// success, so a caller that saw success never reads a pre-mutation result
// from this process.
package catalog

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/metrics"
	"github.com/mesh-intelligence/bunbetsu/internal/resultcache"
	"github.com/mesh-intelligence/bunbetsu/internal/search"
	"github.com/mesh-intelligence/bunbetsu/internal/store"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Result cache keys.
const (
	KeyItems            = "items:all"
	KeyCategories       = "categories:all"
	keyAdminItemsPrefix = "admin:items:category:"
)

// Result cache tags.
const (
	TagItems      = "items"
	TagCategories = "categories"
	TagAdminItems = "admin-items"
)

// Schemas of cached values. Bump when the cached shape changes.
const (
	SchemaItemViews  = "item-views/v1"
	SchemaCategories = "categories/v1"
)

// allTags is invalidated by every mutation. Every cached snapshot embeds the
// catalog version, so a bump stales all of them even when their rows did not
// change.
var allTags = []string{TagItems, TagCategories, TagAdminItems}

// AdminItemsKey is the cache key of one category's admin item list.
func AdminItemsKey(categoryID int64) string {
	return keyAdminItemsPrefix + strconv.FormatInt(categoryID, 10)
}

// Store is the catalog persistence the service needs.
type Store interface {
	ItemViews(ctx context.Context) (types.Snapshot[types.ItemView], error)
	ItemViewsByCategory(ctx context.Context, categoryID int64) (types.Snapshot[types.ItemView], error)
	Categories(ctx context.Context) (types.Snapshot[types.Category], error)
	CurrentVersion(ctx context.Context) (int64, error)
	Mutate(ctx context.Context, fn func(*store.Tx) error) (int64, error)
	Export(ctx context.Context, path string) error
	Ping(ctx context.Context) error
}

// Options configures a Service.
type Options struct {
	// Cache defaults to a resultcache with default limits.
	Cache       *resultcache.Cache
	Logger      *zap.Logger
	Metrics     *metrics.Collector
	Environment string
}

// Service is the catalog coordinator.
type Service struct {
	store    Store
	cache    *resultcache.Cache
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Collector
	env      string

	lastVersion atomic.Int64

	indexMu      sync.Mutex
	index        *search.Index
	indexVersion int64
}

// New creates a Service over st.
func New(st Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = resultcache.New(resultcache.Options{Logger: opts.Logger, Observer: opts.Metrics})
	}
	if opts.Environment == "" {
		opts.Environment = types.EnvDevelopment
	}
	return &Service{
		store:    st,
		cache:    opts.Cache,
		validate: newValidator(),
		logger:   opts.Logger.Named("catalog"),
		metrics:  opts.Metrics,
		env:      opts.Environment,
	}
}

// Environment returns the deployment environment the service runs in.
func (s *Service) Environment() string {
	return s.env
}

// Items returns every item view with the version it was read at.
func (s *Service) Items(ctx context.Context) (types.Snapshot[types.ItemView], error) {
	q := resultcache.Query{Key: KeyItems, Schema: SchemaItemViews, Tags: []string{TagItems}}
	snap, err := resultcache.Fetch(ctx, s.cache, q, s.store.ItemViews)
	if err != nil {
		return snap, err
	}
	s.observe(snap.Version)
	return snap, nil
}

// Categories returns every category with the version it was read at.
func (s *Service) Categories(ctx context.Context) (types.Snapshot[types.Category], error) {
	q := resultcache.Query{Key: KeyCategories, Schema: SchemaCategories, Tags: []string{TagCategories}}
	snap, err := resultcache.Fetch(ctx, s.cache, q, s.store.Categories)
	if err != nil {
		return snap, err
	}
	s.observe(snap.Version)
	return snap, nil
}

// ItemsByCategory returns the item views of one category. It returns
// types.ErrNotFound when the category does not exist.
func (s *Service) ItemsByCategory(ctx context.Context, categoryID int64) (types.Snapshot[types.ItemView], error) {
	q := resultcache.Query{Key: AdminItemsKey(categoryID), Schema: SchemaItemViews, Tags: []string{TagAdminItems}}
	snap, err := resultcache.Fetch(ctx, s.cache, q, func(ctx context.Context) (types.Snapshot[types.ItemView], error) {
		return s.store.ItemViewsByCategory(ctx, categoryID)
	})
	if err != nil {
		return snap, err
	}
	s.observe(snap.Version)
	return snap, nil
}

// Version returns the current catalog version straight from the store.
func (s *Service) Version(ctx context.Context) (int64, error) {
	v, err := s.store.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	s.observe(v)
	return v, nil
}

// LastVersion returns the newest version this service has read or written,
// without touching the store.
func (s *Service) LastVersion() int64 {
	return s.lastVersion.Load()
}

// Search ranks the cached item views against query. The index is rebuilt
// only when the snapshot version changes.
func (s *Service) Search(ctx context.Context, query string) (types.Snapshot[types.ItemView], error) {
	snap, err := s.Items(ctx)
	if err != nil {
		return snap, err
	}
	ix := s.searchIndex(snap)
	return types.Snapshot[types.ItemView]{Version: snap.Version, Rows: ix.Search(query)}, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) searchIndex(snap types.Snapshot[types.ItemView]) *search.Index {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.index == nil || s.indexVersion != snap.Version {
		s.index = search.BuildIndex(snap.Rows)
		s.indexVersion = snap.Version
		s.logger.Debug("search index rebuilt", zap.Int64("version", snap.Version), zap.Int("items", s.index.Len()))
	}
	return s.index
}

// observe records v as the newest known version if it is newer.
func (s *Service) observe(v int64) {
	for {
		cur := s.lastVersion.Load()
		if v <= cur {
			return
		}
		if s.lastVersion.CompareAndSwap(cur, v) {
			s.metrics.SetVersion(v)
			return
		}
	}
}
