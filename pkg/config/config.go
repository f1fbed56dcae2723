package config

// Package config provides a reusable loader for platform node configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"synnergy-platform/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a platform node. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Network struct {
		ID             string   `mapstructure:"id" json:"id"`
		CoreChainID    int      `mapstructure:"core_chain_id" json:"core_chain_id"`
		MaxPeers       int      `mapstructure:"max_peers" json:"max_peers"`
		GenesisFile    string   `mapstructure:"genesis_file" json:"genesis_file"`
		RPCEnabled     bool     `mapstructure:"rpc_enabled" json:"rpc_enabled"`
		P2PPort        int      `mapstructure:"p2p_port" json:"p2p_port"`
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`

	Consensus struct {
		Type                string `mapstructure:"type" json:"type"`
		BlockTimeMS         int    `mapstructure:"block_time_ms" json:"block_time_ms"`
		EpochLengthBlocks   int    `mapstructure:"epoch_length_blocks" json:"epoch_length_blocks"`
		MasternodesRequired int    `mapstructure:"masternodes_required" json:"masternodes_required"`
	} `mapstructure:"consensus" json:"consensus"`

	Fees struct {
		FeeVersion          uint32 `mapstructure:"fee_version" json:"fee_version"`
		TotalSystemCredits  uint64 `mapstructure:"total_system_credits" json:"total_system_credits"`
		ProposerBlockReward uint64 `mapstructure:"proposer_block_reward" json:"proposer_block_reward"`
		ProposerShareBps    uint32 `mapstructure:"proposer_share_bps" json:"proposer_share_bps"`
		MasternodeShareBps  uint32 `mapstructure:"masternode_share_bps" json:"masternode_share_bps"`
	} `mapstructure:"fees" json:"fees"`

	Storage struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
		Prune  bool   `mapstructure:"prune" json:"prune"`

		// BlobGatewayEndpoint is the IPFS-compatible HTTP gateway document
		// attachments are pinned to; empty disables the /blobs query routes
		// and the blob gateway is left unconstructed.
		BlobGatewayEndpoint string `mapstructure:"blob_gateway_endpoint" json:"blob_gateway_endpoint"`
		BlobCacheDir        string `mapstructure:"blob_cache_dir" json:"blob_cache_dir"`
		BlobCacheEntries    int    `mapstructure:"blob_cache_entries" json:"blob_cache_entries"`
	} `mapstructure:"storage" json:"storage"`

	Query struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"query" json:"query"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // reads matching environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SYNN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SYNN_ENV", ""))
}
