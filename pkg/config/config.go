package config

// Package config provides a reusable loader for ledgernode configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/synnergy-labs/ledgernode/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a ledgernode instance.
type Config struct {
	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`

	Storage struct {
		SnapshotDir string `mapstructure:"snapshot_dir" json:"snapshot_dir"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Addr    string `mapstructure:"addr" json:"addr"`
	} `mapstructure:"metrics" json:"metrics"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("network.listen_addr", "/ip4/0.0.0.0/tcp/0")
	viper.SetDefault("network.discovery_tag", "ledgernode-mdns")
	viper.SetDefault("storage.snapshot_dir", "./data")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9090")
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded. A missing
// ledgernode.yaml is not an error — a node without one runs on defaults and
// environment variables alone, which matters for a single binary meant to
// run standalone on a LAN. A missing file for a non-empty env is an error.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // best effort; absence of .env is not an error

	setDefaults()
	viper.SetConfigName("ledgernode")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/ledgernode")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("LEDGERNODE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the LEDGERNODE_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("LEDGERNODE_ENV", ""))
}
