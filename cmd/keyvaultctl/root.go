package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keyvaultctl",
	Short: "Run and administer the keyvault secrets server",
	Long: `keyvaultctl runs the keyvault HTTP server and provides the
administrative commands that operate on its database and configuration.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
