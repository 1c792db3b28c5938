package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wardenhq/warden/core"
)

var keyCmd = &cobra.Command{
	Use:   "key <address>",
	Short: "Print the registry key derived from an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := core.DeriveKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(key.Hex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
}
