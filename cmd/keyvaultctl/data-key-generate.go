package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/keyvault/pkg/cipher"
)

// dataKeyGenerateCmd represents the data-key > generate command
var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `
Generate a data encryption key

Use this command to generate a new Base64-encoded 256 bit key. It serves as
KEYVAULT_DATA_KEY, which seals secret values kept by the database credential
store, and is equally suitable as KEYVAULT_SESSION_SECRET.

Example:

$ export KEYVAULT_DATA_KEY="$(keyvaultctl data-key generate)"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := cipher.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}
