package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/cachestore"
	"github.com/mesh-intelligence/bunbetsu/internal/client"
	"github.com/mesh-intelligence/bunbetsu/internal/edgecache"
	"github.com/mesh-intelligence/bunbetsu/internal/paths"
)

// clientCacheFile is the client response cache inside the cache directory.
const clientCacheFile = "client-cache.db"

var (
	searchServer   string
	searchCacheDir string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog on a bunbetsu server",
	Long: `Search fetches the item list from a bunbetsu server through the local
response cache and ranks it locally. When the server is unreachable the last
cached catalog is searched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := searchServer
		if base == "" {
			base = cfg.GetString(cfgKeyClientBaseURL)
		}
		dir, err := paths.ResolveCacheDir(searchCacheDir, cfg.GetString(cfgKeyClientCacheDir))
		if err != nil {
			return sysError(err)
		}
		storage, err := cachestore.OpenSQLite(filepath.Join(dir, clientCacheFile))
		if err != nil {
			return sysError(fmt.Errorf("open client cache: %w", err))
		}
		defer storage.Close()

		c := client.New(client.Options{
			BaseURL: base,
			Storage: storage,
			Prefix:  cfg.GetString(cfgKeyClientPrefix),
			Edge: edgecache.Config{
				CacheName: cfg.GetString(cfgKeyEdgeCacheName),
				Shell:     cfg.GetStringSlice(cfgKeyEdgeShell),
			},
			Logger: logger,
		})
		defer c.Close()
		prepareEdge(cmd.Context(), c.Edge(), storage)

		snap, err := c.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return sysError(err)
		}
		return printItems(cmd, snap)
	},
}

// prepareEdge installs the shell into a new cache generation and retires
// older generations. Failures only cost cache warmth.
func prepareEdge(ctx context.Context, edge *edgecache.Interceptor, storage cachestore.Storage) {
	has, err := storage.Has(ctx, edge.CacheName())
	if err == nil && !has {
		if err := edge.Install(ctx); err != nil {
			logger.Warn("installing shell cache failed", zap.Error(err))
		}
	}
	if _, err := edge.Activate(ctx); err != nil {
		logger.Warn("retiring old shell caches failed", zap.Error(err))
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchServer, "server", "", "server base URL (default: client.base_url)")
	searchCmd.Flags().StringVar(&searchCacheDir, "cache-dir", "", "client cache directory (default: platform cache dir)")
}
