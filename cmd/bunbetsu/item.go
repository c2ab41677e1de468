package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

var (
	itemName     string
	itemCategory int64
	itemNote     string
	itemAliases  string
	itemListCat  int64
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage items",
}

func itemInput() types.ItemInput {
	return types.ItemInput{Name: itemName, CategoryID: itemCategory, Note: itemNote, SearchAliases: itemAliases}
}

var itemAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add an item",
	Example: `  bunbetsu item add --name 空き缶 --category 3 --aliases "あきかん アルミ缶"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			res := svc.CreateItem(cmd.Context(), itemInput())
			if res.OK {
				return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("created item %d", res.Item.ID))
			}
			return resultError(res)
		})
	},
}

var itemUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace an item's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(svc *catalog.Service) error {
			res := svc.UpdateItem(cmd.Context(), id, itemInput())
			return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("updated item %d", id))
		})
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(svc *catalog.Service) error {
			return printResult(cmd.OutOrStdout(), svc.DeleteItem(cmd.Context(), id), fmt.Sprintf("deleted item %d", id))
		})
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			var (
				snap types.Snapshot[types.ItemView]
				err  error
			)
			if itemListCat > 0 {
				snap, err = svc.ItemsByCategory(cmd.Context(), itemListCat)
			} else {
				snap, err = svc.Items(cmd.Context())
			}
			if err != nil {
				return userError(err)
			}
			return printItems(cmd, snap)
		})
	},
}

// printItems prints item views as JSON or a table.
func printItems(cmd *cobra.Command, snap types.Snapshot[types.ItemView]) error {
	out := cmd.OutOrStdout()
	if flagJSON {
		return printJSON(out, snap)
	}
	if len(snap.Rows) == 0 {
		fmt.Fprintln(out, "No items found.")
		return nil
	}
	rows := make([][]string, len(snap.Rows))
	for i, it := range snap.Rows {
		rows[i] = []string{strconv.FormatInt(it.ID, 10), it.Name, it.GarbageCategory, it.Note}
	}
	printTable(out, []string{"ID", "NAME", "CATEGORY", "NOTE"}, rows)
	fmt.Fprintf(out, "Total: %d item(s), catalog version %d\n", len(snap.Rows), snap.Version)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{itemAddCmd, itemUpdateCmd} {
		c.Flags().StringVar(&itemName, "name", "", "item name")
		c.Flags().Int64Var(&itemCategory, "category", 0, "category id")
		c.Flags().StringVar(&itemNote, "note", "", "disposal note")
		c.Flags().StringVar(&itemAliases, "aliases", "", "space separated search aliases")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("category")
	}
	itemListCmd.Flags().Int64Var(&itemListCat, "category", 0, "only items of this category id")
	itemCmd.AddCommand(itemAddCmd, itemUpdateCmd, itemDeleteCmd, itemListCmd)
}
