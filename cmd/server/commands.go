package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mobility/internal/mobility"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List the mobility flows and the columns each upload must contain",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		for _, f := range mobility.Flows() {
			fmt.Fprintf(out, "%-12s %-28s required: %s\n", f.Key, f.Label, strings.Join(f.Columns.Required(), ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, flowsCmd)
}
