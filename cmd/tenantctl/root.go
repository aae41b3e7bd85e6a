package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tenantctl",
	Short: "Tenant authorization service",
	Long: `Tenant authorization service.

Runs the HTTP server that gates organization administration and manages the
membership schema and user groups it reads.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
