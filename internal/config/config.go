// Package config centralizes runtime configuration for pard. It loads a
// JSON configuration file and exposes a process-wide configuration with
// sensible defaults. Tests and development builds will use defaults when the
// file is not present. Production operators should place a JSON file at
// /etc/pard/config.json or specify a different path via the CONFIG_FILE env
// var.
package config

import (
	"encoding/json"
	"os"
)

// Config holds configurable options for the pard node.
type Config struct {
	KeyFile            string   `json:"key_file"`
	DataDir            string   `json:"data_dir"`
	Port               int      `json:"port"`
	MaxPeers           int      `json:"max_peers"`
	SeedPeers          []string `json:"seed_peers"`
	TaskTimeoutSecs    int      `json:"task_timeout_secs"`
	TickIntervalSecs   int      `json:"tick_interval_secs"`
	PeerSendTimeoutMs  int      `json:"peer_send_timeout_ms"`
	EnableTreasurySeed bool     `json:"enable_treasury_seed"`
	DocsDir            string   `json:"docs_dir"`
	LogBuffer          int      `json:"log_buffer"`
}

var cfg *Config

// LoadConfig reads a JSON file at path. If the file does not exist or
// cannot be parsed, LoadConfig returns defaults (and no error) so that the
// node can run in development with minimal friction.
func LoadConfig(path string) (*Config, error) {
	def := &Config{
		KeyFile:            "pard_key.pem",
		DataDir:            "./paradigm_data",
		Port:               8080,
		MaxPeers:           50,
		SeedPeers:          nil,
		TaskTimeoutSecs:    300,
		TickIntervalSecs:   30,
		PeerSendTimeoutMs:  2000,
		EnableTreasurySeed: true,
		DocsDir:            "docs",
		LogBuffer:          500,
	}

	if path == "" {
		cfg = def
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		// file missing or unreadable -> use defaults
		cfg = def
		return cfg, nil
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		// parse error -> use defaults
		cfg = def
		return cfg, nil
	}

	// merge defaults for any zero-value fields
	if c.KeyFile == "" {
		c.KeyFile = def.KeyFile
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.MaxPeers == 0 {
		c.MaxPeers = def.MaxPeers
	}
	if c.TaskTimeoutSecs == 0 {
		c.TaskTimeoutSecs = def.TaskTimeoutSecs
	}
	if c.TickIntervalSecs == 0 {
		c.TickIntervalSecs = def.TickIntervalSecs
	}
	if c.PeerSendTimeoutMs == 0 {
		c.PeerSendTimeoutMs = def.PeerSendTimeoutMs
	}
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}
	if c.LogBuffer == 0 {
		c.LogBuffer = def.LogBuffer
	}

	cfg = &c
	return cfg, nil
}

// Get returns the loaded configuration. If LoadConfig hasn't been called
// yet, it returns defaults.
func Get() *Config {
	if cfg == nil {
		LoadConfig("")
	}
	return cfg
}
