package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/logging"
	"github.com/mesh-intelligence/bunbetsu/internal/paths"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagLogLevel  string
)

// Loaded by PersistentPreRunE for every subcommand.
var (
	cfg      *viper.Viper
	cfgDir   string
	logger   = zap.NewNop()
	logLevel zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:           "bunbetsu",
	Short:         "bunbetsu answers which bin a household item goes in",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return sysError(err)
		}
		v, err := loadConfig(dir)
		if err != nil {
			return sysError(err)
		}
		if flagLogLevel != "" {
			v.Set(cfgKeyLogLevel, flagLogLevel)
		}
		l, level, err := logging.New(logOptions(v))
		if err != nil {
			return userError(err)
		}
		cfg, cfgDir, logger, logLevel = v, dir, l, level
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: platform data dir)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)
}
