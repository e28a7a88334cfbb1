package app

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryjones/iroha/log"
	"github.com/ryjones/iroha/node"
)

var cfgFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the node with config",
	Long: `Start a ledger node with the specified configuration. The node
recovers the world state from previously stored blocks before joining
consensus; on an empty database the configured genesis block is
applied first.`,
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile == "" {
			log.Fatal(errors.New("config file not provided"))
		}
		v := viper.New()
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		c, err := node.NewConfig(v)
		if err != nil {
			log.Fatal(err)
		}
		n := node.NewNode(c)
		n.Start()
	},
}

func init() {
	startCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to the node config file")
	startCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(startCmd)
}
