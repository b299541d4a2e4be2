// Command quillctl runs maintenance tasks against the blog database and cache.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "quillctl",
	Short: "Quill maintenance CLI",
	Long: `quillctl manages a Quill blog installation: run migrations, promote
administrators, seed demo data, clear cached sidebars and export location logs.

Settings come from the same environment variables and config file as the server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(promoteAdminCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(clearSidebarCacheCmd)
	rootCmd.AddCommand(exportLocationsCmd)
}

func printSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Printf(msg+"\n", args...)
}

func printInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Printf(msg+"\n", args...)
}

func printWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Printf("Warning: "+msg+"\n", args...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
