// Package paths resolves the configuration, data and client cache
// directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under each platform base directory.
const AppName = "bunbetsu"

// Environment variables overriding the directories.
const (
	EnvConfigDir = "BUNBETSU_CONFIG_DIR"
	EnvDataDir   = "BUNBETSU_DATA_DIR"
	EnvCacheDir  = "BUNBETSU_CACHE_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	userCacheDir:  os.UserCacheDir,
}

// xdgDir returns $xdgVar/bunbetsu on Linux, falling back to
// ~/<fallback>/bunbetsu. Elsewhere it returns other()/bunbetsu.
func xdgDir(xdgVar string, fallback []string, other func() (string, error)) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, fallback...), AppName)...), nil
	}
	dir, err := other()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/bunbetsu (fallback ~/.config/bunbetsu)
// macOS:   ~/Library/Application Support/bunbetsu
// Windows: %APPDATA%/bunbetsu
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", []string{".config"}, platformDir.userConfigDir)
}

// DefaultDataDir returns the platform data directory. Outside Linux it is
// the configuration directory.
//
// Linux: $XDG_DATA_HOME/bunbetsu (fallback ~/.local/share/bunbetsu)
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", []string{".local", "share"}, platformDir.userConfigDir)
}

// DefaultCacheDir returns the platform cache directory, where the client
// keeps its response cache.
//
// Linux: $XDG_CACHE_HOME/bunbetsu (fallback ~/.cache/bunbetsu)
// macOS: ~/Library/Caches/bunbetsu
func DefaultCacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", []string{".cache"}, platformDir.userCacheDir)
}

// resolve returns the first non-empty candidate made absolute, then the
// environment variable, then def().
func resolve(env string, def func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Abs(v)
	}
	return def()
}

// ResolveConfigDir returns flag, else BUNBETSU_CONFIG_DIR, else the
// platform default.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(EnvConfigDir, DefaultConfigDir, flag)
}

// ResolveDataDir returns flag, else the data_dir value from config.yaml,
// else BUNBETSU_DATA_DIR, else the platform default.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(EnvDataDir, DefaultDataDir, flag, configValue)
}

// ResolveCacheDir returns flag, else the cache_dir value from config.yaml,
// else BUNBETSU_CACHE_DIR, else the platform default.
func ResolveCacheDir(flag, configValue string) (string, error) {
	return resolve(EnvCacheDir, DefaultCacheDir, flag, configValue)
}
