package app

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "irohad",
	Short: "Permissioned BFT ledger node",
	Long: `irohad runs a permissioned ledger peer: it accepts signed
transaction batches, orders them on demand, votes on proposals with
the cluster and applies committed blocks to the world state.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
