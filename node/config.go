package node

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/ryjones/iroha/consensus"
)

type Config struct {
	// listen port of the gRPC server, e.g. ":50051"
	Port string
	// listen port of the metrics endpoint, empty disables it
	MetricsPort string
	// node ID (hex public key derived from the seed)
	NodeID string
	// base58 seed of this node
	Seed string
	// database file path
	DBPath string
	// genesis block file, applied once on an empty chain
	GenesisPath string
	// consistency model: "bft" (default) or "cft"
	ConsistencyModel consensus.ConsistencyModel
	// max transactions packed into one proposal
	TransactionLimit int
	// how long the gate waits for the round proposal
	ProposalRequestTimeout time.Duration
	// keep polling the block store for growth during restore
	WaitForNewBlocks bool
	// log level: debug, info, warn, error
	LogLevel string
}

func NewConfig(v *viper.Viper) (*Config, error) {
	if v.GetString("port") == "" {
		return nil, errors.New("network port is missing")
	}
	if v.GetString("node_id") == "" {
		return nil, errors.New("node ID is empty")
	}
	if v.GetString("seed") == "" {
		return nil, errors.New("node seed is empty")
	}
	if v.GetString("db_path") == "" {
		return nil, errors.New("db path is empty")
	}

	model := consensus.ModelBFT
	if v.GetString("consistency_model") == "cft" {
		model = consensus.ModelCFT
	}

	txLimit := v.GetInt("transaction_limit")
	if txLimit == 0 {
		txLimit = 10
	}
	requestTimeout := v.GetDuration("proposal_request_timeout")
	if requestTimeout == 0 {
		requestTimeout = 2 * time.Second
	}

	c := Config{
		Port:                   v.GetString("port"),
		MetricsPort:            v.GetString("metrics_port"),
		NodeID:                 v.GetString("node_id"),
		Seed:                   v.GetString("seed"),
		DBPath:                 v.GetString("db_path"),
		GenesisPath:            v.GetString("genesis_path"),
		ConsistencyModel:       model,
		TransactionLimit:       txLimit,
		ProposalRequestTimeout: requestTimeout,
		WaitForNewBlocks:       v.GetBool("wait_for_new_blocks"),
		LogLevel:               v.GetString("log_level"),
	}
	return &c, nil
}
