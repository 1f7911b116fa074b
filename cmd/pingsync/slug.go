package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pingsync"
)

// slugCmd prints the slug used for #WEBSITE_NAME#.
var slugCmd = &cobra.Command{
	Use:   "slug NAME...",
	Short: "Print the slug substituted for #WEBSITE_NAME#",
	Long: `Print the slug pingsync substitutes for #WEBSITE_NAME# given a site name.
Multiple arguments are joined with spaces.

Example:
  pingsync slug "My Site!"   # my-site`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), pingsync.Slugify(strings.Join(args, " ")))
	},
}

func init() {
	rootCmd.AddCommand(slugCmd)
}
