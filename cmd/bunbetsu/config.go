package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/bunbetsu/internal/clientcache"
	"github.com/mesh-intelligence/bunbetsu/internal/edgecache"
	"github.com/mesh-intelligence/bunbetsu/internal/logging"
	"github.com/mesh-intelligence/bunbetsu/internal/paths"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "BUNBETSU"
)

// Config keys. Each is also read from BUNBETSU_<KEY> with dots replaced by
// underscores, for example BUNBETSU_SERVER_ADDR.
const (
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyPostgresDSN    = "postgres_dsn"
	cfgKeyEnvironment    = "environment"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogJSON        = "log.json"
	cfgKeyLogFile        = "log.file"
	cfgKeyServerAddr     = "server.addr"
	cfgKeyAllowedOrigins = "server.allowed_origins"
	cfgKeyShutdown       = "server.shutdown_timeout"
	cfgKeyCacheMaxAge    = "cache.max_age"
	cfgKeyCacheEntries   = "cache.max_entries"
	cfgKeyClientBaseURL  = "client.base_url"
	cfgKeyClientCacheDir = "client.cache_dir"
	cfgKeyClientPrefix   = "client.cache_prefix"
	cfgKeyEdgeCacheName  = "edge.cache_name"
	cfgKeyEdgeShell      = "edge.shell"
)

// configFile is the shape written to config.yaml by init.
type configFile struct {
	Backend     string        `yaml:"backend"`
	DataDir     string        `yaml:"data_dir,omitempty"`
	Environment string        `yaml:"environment"`
	Log         logSection    `yaml:"log"`
	Server      serverSection `yaml:"server"`
	Client      clientSection `yaml:"client"`
	Edge        edgeSection   `yaml:"edge"`
}

type logSection struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file,omitempty"`
}

type serverSection struct {
	Addr string `yaml:"addr"`
}

type clientSection struct {
	BaseURL     string `yaml:"base_url"`
	CachePrefix string `yaml:"cache_prefix"`
}

type edgeSection struct {
	CacheName string   `yaml:"cache_name"`
	Shell     []string `yaml:"shell"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:     types.BackendSQLite,
		DataDir:     dataDir,
		Environment: types.EnvDevelopment,
		Log:         logSection{Level: "info"},
		Server:      serverSection{Addr: "127.0.0.1:8080"},
		Client: clientSection{
			BaseURL:     "http://127.0.0.1:8080",
			CachePrefix: clientcache.DefaultPrefix,
		},
		Edge: edgeSection{
			CacheName: edgecache.DefaultCacheName,
			Shell:     []string{"/version", "/categories"},
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := defaultConfigFile("")
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyEnvironment, def.Environment)
	v.SetDefault(cfgKeyLogLevel, def.Log.Level)
	v.SetDefault(cfgKeyLogJSON, false)
	v.SetDefault(cfgKeyServerAddr, def.Server.Addr)
	v.SetDefault(cfgKeyShutdown, 10*time.Second)
	v.SetDefault(cfgKeyCacheMaxAge, 5*time.Minute)
	v.SetDefault(cfgKeyCacheEntries, 256)
	v.SetDefault(cfgKeyClientBaseURL, def.Client.BaseURL)
	v.SetDefault(cfgKeyClientPrefix, def.Client.CachePrefix)
	v.SetDefault(cfgKeyEdgeCacheName, def.Edge.CacheName)
	v.SetDefault(cfgKeyEdgeShell, def.Edge.Shell)
}

// loadConfig reads config.yaml from configDir, layered over defaults and
// under BUNBETSU_ environment variables. A missing file is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with defaults. An existing file
// is left alone.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfigFile(dataDir))
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}

// watchConfig applies log level changes from config.yaml while the process
// runs. Other settings take effect on restart.
func watchConfig(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := logging.ParseLevel(v.GetString(cfgKeyLogLevel))
		if err != nil {
			log.Warn("ignoring invalid log level", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if next != level.Level() {
			level.SetLevel(next)
			log.Info("log level changed", zap.String("level", next.String()))
		}
	})
	v.WatchConfig()
}

func logOptions(v *viper.Viper) logging.Options {
	return logging.Options{
		Level:    v.GetString(cfgKeyLogLevel),
		JSON:     v.GetBool(cfgKeyLogJSON),
		File:     v.GetString(cfgKeyLogFile),
		Rotation: logging.DefaultRotation(),
	}
}

// catalogConfig builds the store configuration. The data directory follows
// --data-dir, then data_dir, then BUNBETSU_DATA_DIR, then the platform
// default.
func catalogConfig(v *viper.Viper) (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	c := types.Config{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     dataDir,
		PostgresDSN: v.GetString(cfgKeyPostgresDSN),
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, err
	}
	return c, nil
}
