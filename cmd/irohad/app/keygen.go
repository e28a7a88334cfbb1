package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryjones/iroha/crypto"
	"github.com/ryjones/iroha/log"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a node keypair",
	Run: func(cmd *cobra.Command, args []string) {
		pub, seed, err := crypto.GetNodeKeypair()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("node_id: %s\nseed: %s\n", pub, seed)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
