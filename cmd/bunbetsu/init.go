package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
)

var initSeed bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file and catalog storage",
	Long: `Init writes a default config.yaml when none exists, creates the catalog
schema, and with --seed loads the starter categories and items into an
empty catalog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := writeConfigIfMissing(cfgDir, flagDataDir)
		if err != nil {
			return sysError(err)
		}
		if created {
			// Pick up the file just written.
			v, err := loadConfig(cfgDir)
			if err != nil {
				return sysError(err)
			}
			cfg = v
		}

		return withCatalog(func(svc *catalog.Service) error {
			out := cmd.OutOrStdout()
			if initSeed {
				res := svc.Seed(cmd.Context())
				if err := resultError(res); err != nil {
					return err
				}
				if res.Import != nil {
					fmt.Fprintf(out, "seeded %d categories and %d items\n",
						res.Import.CategoriesCreated, res.Import.ItemsCreated)
				} else {
					fmt.Fprintln(out, res.Message)
				}
			}
			c, err := catalogConfig(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "bunbetsu initialized")
			fmt.Fprintln(out, "  config:", cfgDir)
			fmt.Fprintln(out, "  data:  ", c.DataDir)
			return nil
		})
	},
}

func init() {
	initCmd.Flags().BoolVar(&initSeed, "seed", false, "load the starter catalog into an empty catalog")
}
