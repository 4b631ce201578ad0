// Package config loads a pserver node's configuration from a YAML file,
// layered over built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Node is one pserver process's full configuration.
type Node struct {
	// IP and RPCPort are this node's dial-back address, reported to the
	// master on Register.
	IP      string `yaml:"ip"`
	RPCPort uint32 `yaml:"rpc_port"`

	// MetaAddr is the master's base URL, e.g. "http://meta0:8900".
	MetaAddr string `yaml:"meta_addr"`

	// DataDir is the base directory under which each partition's KV,
	// index, and Raft log directories are created.
	DataDir string `yaml:"data_dir"`

	// RaftBindHost and RaftBasePort choose the TCP address range each
	// locally-held partition's Raft transport binds to.
	RaftBindHost string `yaml:"raft_bind_host"`
	RaftBasePort int    `yaml:"raft_base_port"`

	// HeartbeatInterval is the period of the periodic TakeHeartbeat loop.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// LogLevel and LogJSON configure pkg/log.
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// defaults returns the built-in configuration, over which a config file's
// values are applied.
func defaults() Node {
	return Node{
		IP:                "127.0.0.1",
		RPCPort:           8700,
		MetaAddr:          "http://127.0.0.1:8900",
		DataDir:           "./pserver-data",
		RaftBindHost:      "127.0.0.1",
		RaftBasePort:      9700,
		HeartbeatInterval: 5 * time.Second,
		LogLevel:          "info",
	}
}

// Load reads a YAML config file at path, layering it over defaults(). An
// empty path returns the defaults unchanged, matching a node started with
// no --config flag.
func Load(path string) (Node, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Node{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Node{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
