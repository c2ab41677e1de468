package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
	"github.com/mesh-intelligence/bunbetsu/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the catalog to a JSONL file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			if err := svc.Export(cmd.Context(), args[0]); err != nil {
				return sysError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported catalog to", args[0])
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upsert categories and items from a JSONL file",
	Long: `Import reads a file written by export and creates or updates categories
and items by name in a single catalog change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := store.ReadRecords(args[0])
		if err != nil {
			return userError(err)
		}
		return withCatalog(func(svc *catalog.Service) error {
			res := svc.Import(cmd.Context(), records)
			if res.OK && res.Import != nil {
				st := res.Import
				return printResult(cmd.OutOrStdout(), res, fmt.Sprintf(
					"categories: %d created, %d updated; items: %d created, %d updated",
					st.CategoriesCreated, st.CategoriesUpdated, st.ItemsCreated, st.ItemsUpdated))
			}
			return resultError(res)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every item and category (not in production)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			return printResult(cmd.OutOrStdout(), svc.Reset(cmd.Context()), "catalog reset")
		})
	},
}
