package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodesConfig holds the network endpoints.
type NodesConfig struct {
	FullNodeURL        string `yaml:"full_node_url"`
	CheckpointsNodeURL string `yaml:"checkpoints_node_url"`
}

// SourceConfig tunes the checkpoint fetch worker.
type SourceConfig struct {
	Concurrency int    `yaml:"concurrency"`
	CacheDir    string `yaml:"cache_dir"`
}

// NATSConfig configures the event batch relay.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig configures the raw event archive.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// APIConfig configures the archive query API server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Nodes      NodesConfig      `yaml:"nodes"`
	Source     SourceConfig     `yaml:"source"`
	NATS       NATSConfig       `yaml:"nats"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	API        APIConfig        `yaml:"api"`
}

// Default returns the configuration used when no file is given, pointing at
// the public mainnet endpoints.
func Default() *Config {
	return &Config{
		Nodes: NodesConfig{
			FullNodeURL:        "https://fullnode.mainnet.sui.io:443",
			CheckpointsNodeURL: "https://checkpoints.mainnet.sui.io",
		},
		Source: SourceConfig{
			Concurrency: 5,
			CacheDir:    "cache",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "harvest.events",
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads the configuration from a YAML file over the defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	return cfg, nil
}
