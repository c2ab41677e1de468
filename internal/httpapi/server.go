// Package httpapi serves the catalog over HTTP: public reads, the admin
// mutation surface and the test reset hook.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
	"github.com/mesh-intelligence/bunbetsu/internal/metrics"
)

// HeaderVersion carries the catalog version on every response.
const HeaderVersion = "X-Catalog-Version"

// Options configures the router.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Collector
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// RequestTimeout bounds each request. Zero means 30s.
	RequestTimeout time.Duration
}

// Server holds the handlers' dependencies.
type Server struct {
	svc     *catalog.Service
	logger  *zap.Logger
	metrics *metrics.Collector
	opts    Options
}

// New creates a Server over svc.
func New(svc *catalog.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		svc:     svc,
		logger:  opts.Logger.Named("http"),
		metrics: opts.Metrics,
		opts:    opts,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(s.observe)
	router.Use(s.versionHeader)
	router.Use(chimiddleware.Timeout(s.opts.RequestTimeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", HeaderVersion},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Get("/version", s.version)
	router.Get("/items", s.listItems)
	router.Get("/categories", s.listCategories)
	router.Get("/search", s.search)

	router.Route("/admin", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", s.createCategory)
			r.Put("/{id}", s.updateCategory)
			r.Delete("/{id}", s.deleteCategory)
			r.Get("/{id}/items", s.categoryItems)
		})
		r.Route("/items", func(r chi.Router) {
			r.Post("/", s.createItem)
			r.Put("/{id}", s.updateItem)
			r.Delete("/{id}", s.deleteItem)
		})
	})

	router.Post("/test/reset", s.reset)

	return router
}

// health reports whether the store answers.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
