package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/adapters/registrystore"
	"github.com/wardenhq/warden/config"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/service"
)

var reportTimestamp uint64

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect or write registry attestations in the local registry db",
}

var reportGetCmd = &cobra.Command{
	Use:   "get <address>",
	Short: "Look up the attestation for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, closeFn, err := openLocalRegistry()
		if err != nil {
			return err
		}
		defer closeFn()

		report, ok, err := service.NewReconciler(registry).Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no attestation")
			return nil
		}

		fmt.Printf("score: %d\npointer: %s\ntimestamp: %d\n", report.Score, report.ContentPointer, report.Timestamp)
		return nil
	},
}

var reportStoreCmd = &cobra.Command{
	Use:   "store <address> <score> <content-pointer>",
	Short: "Write an attestation as the configured deployer",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return fmt.Errorf("invalid score: %w", err)
		}

		registry, closeFn, err := openLocalRegistry()
		if err != nil {
			return err
		}
		defer closeFn()

		key, err := core.DeriveKey(args[0])
		if err != nil {
			return err
		}

		ts := reportTimestamp
		if ts == 0 {
			ts = uint64(time.Now().Unix())
		}

		report := core.RiskReport{
			Score:          uint8(score),
			ContentPointer: args[2],
			Timestamp:      ts,
		}

		if err := registry.StoreReport(cmd.Context(), config.FromEnv().Deployer, key, report); err != nil {
			return err
		}

		fmt.Println(key.Hex())
		return nil
	},
}

func openLocalRegistry() (*service.RegistryService, func(), error) {
	cfg := config.FromEnv()

	registryStore, err := registrystore.NewBoltFromFile(cfg.RegistryDBPath, nil)
	if err != nil {
		return nil, nil, err
	}

	deployer := cfg.Deployer
	if deployer == "" {
		deployer = "0x0000000000000000000000000000000000000000"
	}

	registry, err := service.NewRegistryService(registryStore, nil, deployer, nil)
	if err != nil {
		registryStore.Close()
		return nil, nil, err
	}

	return registry, func() { registryStore.Close() }, nil
}

func init() {
	reportStoreCmd.Flags().Uint64Var(&reportTimestamp, "timestamp", 0, "attestation timestamp (unix seconds, defaults to now)")
	reportCmd.AddCommand(reportGetCmd, reportStoreCmd)
	rootCmd.AddCommand(reportCmd)
}
