package cmd

import (
	"github.com/spf13/cobra"
)

var (
	DbPath  string
	Version = "dev"
)

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(cruiseCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(mcpCmd())
}
