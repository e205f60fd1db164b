package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// configurationCmd represents the configuration command
var configurationCmd = &cobra.Command{
	Use:   "configuration",
	Short: "Manage keyvault configuration",
	Long:  `Inspect and validate keyvault configuration settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Help()
		return fmt.Errorf("command 'configuration' requires a subcommand (show, validate)")
	},
}

func init() {
	rootCmd.AddCommand(configurationCmd)
}
