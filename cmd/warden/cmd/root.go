package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "warden is a wallet sign-in and risk attestation registry service",
	Long: `warden proves control of a blockchain account to a server session and
records role-gated risk attestations for accounts in an address-keyed registry.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
