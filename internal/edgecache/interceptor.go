// Package edgecache is an HTTP transport that sits between a client and the
// network and serves requests from named cache storage by policy: static
// assets cache-first, API reads network-first with an offline fallback,
// everything else straight through.
//
// Stored responses live in one generation bucket named by a constant. When
// the constant changes, Activate drops the older generations of the same
// family and leaves other buckets in the storage alone.
package edgecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/cachestore"
)

// DefaultCacheName is the current shell cache generation. Change it to
// retire every stored shell response on the next Activate.
const DefaultCacheName = "bunbetsu-shell-v1"

// Response header set on every response the interceptor returns.
const (
	HeaderCache     = "X-Edge-Cache"
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheFallback   = "fallback"
	CacheSynthesize = "synthesized"
	CacheBypass     = "bypass"
)

// Config configures an Interceptor.
type Config struct {
	// CacheName is the current generation, for example bunbetsu-shell-v1.
	// Its family is everything before the last "-v".
	CacheName string
	// BaseURL resolves Shell paths for Install.
	BaseURL string
	// Shell lists paths fetched and stored by Install.
	Shell []string
	Rules Rules
	// Breaker settings for network calls. Zero values use the defaults.
	BreakerName      string
	BreakerTimeout   time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// Interceptor implements http.RoundTripper.
type Interceptor struct {
	storage cachestore.Storage
	next    http.RoundTripper
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	now     func() time.Time
}

var _ http.RoundTripper = (*Interceptor)(nil)

// New creates an Interceptor that stores responses in storage and sends
// network requests through next (http.DefaultTransport when nil).
func New(storage cachestore.Storage, next http.RoundTripper, cfg Config, logger *zap.Logger) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheName == "" {
		cfg.CacheName = DefaultCacheName
	}
	if len(cfg.Rules.StaticExtensions) == 0 && len(cfg.Rules.StaticPrefixes) == 0 && len(cfg.Rules.StaticPaths) == 0 {
		cfg.Rules = DefaultRules()
	}
	if cfg.BreakerName == "" {
		cfg.BreakerName = "edge-network"
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 0.8
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}

	ic := &Interceptor{
		storage: storage,
		next:    next,
		cfg:     cfg,
		logger:  logger.Named("edgecache"),
		now:     time.Now,
	}
	ic.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ic.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return ic
}

// CacheName returns the current generation name.
func (ic *Interceptor) CacheName() string {
	return ic.cfg.CacheName
}

// Family returns the generation prefix shared by every generation of this
// cache, including the trailing "-v".
func (ic *Interceptor) Family() string {
	return family(ic.cfg.CacheName)
}

func family(name string) string {
	if i := strings.LastIndex(name, "-v"); i >= 0 {
		return name[:i+2]
	}
	return name + "-v"
}

// Install fetches every shell path and stores the successful responses in
// the current generation. It fails if any shell path cannot be fetched.
func (ic *Interceptor) Install(ctx context.Context) error {
	bucket, err := ic.storage.Open(ctx, ic.cfg.CacheName)
	if err != nil {
		return fmt.Errorf("opening cache %q: %w", ic.cfg.CacheName, err)
	}
	base := strings.TrimRight(ic.cfg.BaseURL, "/")
	for _, p := range ic.cfg.Shell {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+p, nil)
		if err != nil {
			return fmt.Errorf("building shell request %q: %w", p, err)
		}
		resp, err := ic.next.RoundTrip(req)
		if err != nil {
			return fmt.Errorf("fetching shell %q: %w", p, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return fmt.Errorf("fetching shell %q: status %d", p, resp.StatusCode)
		}
		stored, err := cachestore.Capture(resp, ic.now())
		if err != nil {
			return fmt.Errorf("reading shell %q: %w", p, err)
		}
		if err := bucket.Put(ctx, req.URL.String(), stored); err != nil {
			return fmt.Errorf("storing shell %q: %w", p, err)
		}
	}
	ic.logger.Info("shell installed", zap.String("cache", ic.cfg.CacheName), zap.Int("entries", len(ic.cfg.Shell)))
	return nil
}

// Activate deletes every generation of this cache family other than the
// current one and returns the deleted names.
func (ic *Interceptor) Activate(ctx context.Context) ([]string, error) {
	deleted, err := cachestore.DeleteExcept(ctx, ic.storage, ic.Family(), ic.cfg.CacheName)
	for _, name := range deleted {
		ic.logger.Info("retired cache generation", zap.String("cache", name))
	}
	return deleted, err
}

// RoundTrip serves req by its policy. It never returns an error for network
// failures; those become synthesized responses.
func (ic *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	switch policy := ic.cfg.Rules.Classify(req); policy {
	case CacheFirst:
		return ic.cacheFirst(req), nil
	case NetworkFirst:
		return ic.networkFirst(req), nil
	default:
		resp, err := ic.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp.Header.Set(HeaderCache, CacheBypass)
		return resp, nil
	}
}

func (ic *Interceptor) cacheFirst(req *http.Request) *http.Response {
	ctx := req.Context()
	key := req.URL.String()
	bucket := ic.bucket(ctx)
	if stored := ic.match(ctx, bucket, key); stored != nil {
		return served(stored, req, CacheHit)
	}

	resp, err := ic.fetch(req)
	if err != nil {
		return ic.synthesize(req, err)
	}
	ic.store(ctx, bucket, key, resp)
	resp.Header.Set(HeaderCache, CacheMiss)
	return resp
}

func (ic *Interceptor) networkFirst(req *http.Request) *http.Response {
	ctx := req.Context()
	key := req.URL.String()
	bucket := ic.bucket(ctx)

	resp, err := ic.fetch(req)
	if err == nil {
		ic.store(ctx, bucket, key, resp)
		resp.Header.Set(HeaderCache, CacheMiss)
		return resp
	}
	// The request context may be what failed; look up the fallback
	// without it.
	if stored := ic.match(context.WithoutCancel(ctx), bucket, key); stored != nil {
		ic.logger.Debug("serving stored response after network failure",
			zap.String("url", key), zap.Error(err))
		return served(stored, req, CacheFallback)
	}
	return ic.synthesize(req, err)
}

// serverError carries a 5xx response through the breaker as a failure.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server returned %d", e.resp.StatusCode)
}

// fetch sends req through the breaker. A 5xx response counts as a breaker
// failure but is returned to the caller as a response, not an error.
func (ic *Interceptor) fetch(req *http.Request) (*http.Response, error) {
	result, err := ic.breaker.Execute(func() (any, error) {
		resp, err := ic.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})
	var se *serverError
	if errors.As(err, &se) {
		return se.resp, nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// bucket opens the current generation. Storage errors are logged and
// yield nil, which disables storing and matching for the request.
func (ic *Interceptor) bucket(ctx context.Context) cachestore.Bucket {
	b, err := ic.storage.Open(ctx, ic.cfg.CacheName)
	if err != nil {
		ic.logger.Warn("opening cache failed", zap.String("cache", ic.cfg.CacheName), zap.Error(err))
		return nil
	}
	return b
}

func (ic *Interceptor) match(ctx context.Context, b cachestore.Bucket, key string) *cachestore.Response {
	if b == nil {
		return nil
	}
	stored, ok, err := b.Match(ctx, key)
	if err != nil {
		ic.logger.Warn("cache match failed", zap.String("url", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return stored
}

// store saves a copy of a successful response. resp stays readable.
func (ic *Interceptor) store(ctx context.Context, b cachestore.Bucket, key string, resp *http.Response) {
	if b == nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return
	}
	if strings.Contains(resp.Header.Get("Cache-Control"), "no-store") {
		return
	}
	stored, err := cachestore.Capture(resp, ic.now())
	if err != nil {
		ic.logger.Warn("reading response for cache failed", zap.String("url", key), zap.Error(err))
		return
	}
	if err := b.Put(context.WithoutCancel(ctx), key, stored); err != nil {
		ic.logger.Warn("cache put failed", zap.String("url", key), zap.Error(err))
	}
}

func served(stored *cachestore.Response, req *http.Request, source string) *http.Response {
	resp := stored.HTTPResponse(req)
	resp.Header.Set(HeaderCache, source)
	return resp
}
