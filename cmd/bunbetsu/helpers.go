package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
	"github.com/mesh-intelligence/bunbetsu/internal/metrics"
	"github.com/mesh-intelligence/bunbetsu/internal/resultcache"
	"github.com/mesh-intelligence/bunbetsu/internal/store"
)

// openCatalog attaches the configured store and builds a catalog service
// over it. The caller must call the returned close function.
func openCatalog(v *viper.Viper, m *metrics.Collector) (*catalog.Service, func() error, error) {
	c, err := catalogConfig(v)
	if err != nil {
		return nil, nil, userError(err)
	}
	backend := store.NewBackend()
	if err := backend.Attach(c); err != nil {
		return nil, nil, sysError(fmt.Errorf("attach catalog: %w", err))
	}
	cache := resultcache.New(resultcache.Options{
		MaxAge:     v.GetDuration(cfgKeyCacheMaxAge),
		MaxEntries: v.GetInt(cfgKeyCacheEntries),
		Logger:     logger,
		Observer:   m,
	})
	svc := catalog.New(backend, catalog.Options{
		Cache:       cache,
		Logger:      logger,
		Metrics:     m,
		Environment: v.GetString(cfgKeyEnvironment),
	})
	return svc, backend.Detach, nil
}

// withCatalog runs fn against an attached catalog service.
func withCatalog(fn func(svc *catalog.Service) error) error {
	svc, closeFn, err := openCatalog(cfg, nil)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

// resultError converts a failed result into a CLI error with the matching
// exit code.
func resultError(res catalog.Result) error {
	if res.OK {
		return nil
	}
	msg := fmt.Sprintf("%s: %s", res.Code, res.Message)
	for field, problem := range res.Fields {
		msg += fmt.Sprintf("\n  %s %s", field, problem)
	}
	if res.Code == catalog.CodeInternal {
		return sysError(errors.New(msg))
	}
	return userError(errors.New(msg))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("invalid id %q", arg))
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printResult prints a successful mutation result.
func printResult(w io.Writer, res catalog.Result, summary string) error {
	if err := resultError(res); err != nil {
		return err
	}
	if flagJSON {
		return printJSON(w, res)
	}
	fmt.Fprintf(w, "%s (catalog version %d)\n", summary, res.Version)
	return nil
}
