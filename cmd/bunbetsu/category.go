package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

var (
	categoryName  string
	categoryColor string
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage waste categories",
}

var categoryAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a category",
	Example: `  bunbetsu category add --name 可燃ごみ --color "#e74c3c"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			res := svc.CreateCategory(cmd.Context(), types.CategoryInput{Name: categoryName, Color: categoryColor})
			if res.OK {
				return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("created category %d", res.Category.ID))
			}
			return resultError(res)
		})
	},
}

var categoryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename or recolor a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(svc *catalog.Service) error {
			res := svc.UpdateCategory(cmd.Context(), id, types.CategoryInput{Name: categoryName, Color: categoryColor})
			return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("updated category %d", id))
		})
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category and every item in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(svc *catalog.Service) error {
			res := svc.DeleteCategory(cmd.Context(), id)
			return printResult(cmd.OutOrStdout(), res,
				fmt.Sprintf("deleted category %d and %d item(s)", id, res.RemovedItems))
		})
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			snap, err := svc.Categories(cmd.Context())
			if err != nil {
				return sysError(err)
			}
			out := cmd.OutOrStdout()
			if flagJSON {
				return printJSON(out, snap)
			}
			if len(snap.Rows) == 0 {
				fmt.Fprintln(out, "No categories found.")
				return nil
			}
			rows := make([][]string, len(snap.Rows))
			for i, c := range snap.Rows {
				rows[i] = []string{strconv.FormatInt(c.ID, 10), c.Name, c.Color, c.UpdatedAt.Format("2006-01-02")}
			}
			printTable(out, []string{"ID", "NAME", "COLOR", "UPDATED"}, rows)
			fmt.Fprintf(out, "Total: %d category(ies), catalog version %d\n", len(snap.Rows), snap.Version)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{categoryAddCmd, categoryUpdateCmd} {
		c.Flags().StringVar(&categoryName, "name", "", "category name")
		c.Flags().StringVar(&categoryColor, "color", "", "hex color, for example #e74c3c")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("color")
	}
	categoryCmd.AddCommand(categoryAddCmd, categoryUpdateCmd, categoryDeleteCmd, categoryListCmd)
}
