package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/bunbetsu"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bunbetsu version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bunbetsu %s\nmodule: %s\n", version, modulePath)
	},
}
