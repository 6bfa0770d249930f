// Package main is the entry point of the mobility filter server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var servePort int

var rootCmd = &cobra.Command{
	Use:           "mobility",
	Short:         "Mobility records filter server",
	Long:          "Upload mobility exports, filter them by year, country and region, and download the result as CSV or Excel.",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&servePort, "port", 0, "Port to listen on (overrides SERVER_PORT)")
}

func main() {
	// Overload lets a local .env win over inherited variables.
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
