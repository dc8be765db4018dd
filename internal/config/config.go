// Package config holds the static roster and tunables a cluster is started
// with (spec §6 "Roster and ports"). There is no discovery: every process
// is handed the same roster at startup, matching the Python prototype's
// config.py constants.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig describes one worker's transport endpoint.
type NodeConfig struct {
	Address string `yaml:"address"`
}

// Config is the full roster and timing configuration for a cluster.
type Config struct {
	PrimaryAddr string `yaml:"primary_addr"`
	StatusAddr  string `yaml:"status_addr"`

	Workers map[string]NodeConfig `yaml:"workers"`

	ReplicationFactor int `yaml:"replication_factor"`
	VirtualNodes      int `yaml:"virtual_nodes"`
	WorkerCapacity    int `yaml:"worker_capacity"`

	ProbeInterval     time.Duration `yaml:"probe_interval"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	ReplicateTimeout  time.Duration `yaml:"replicate_timeout"`
	AcceptRatePerSec  float64       `yaml:"accept_rate_per_sec"`
	AcceptBurst       int           `yaml:"accept_burst"`

	// Seed is the catalog's startup entry set (spec §9 "Process-wide state
	// with lifecycle"), carried verbatim from the Python prototype's
	// datastore.py.
	Seed map[string]string `yaml:"seed"`
}

// Default returns the configuration matching the Python prototype's
// config.py: node1..node4 on 5001..5004, primary on 4001, R=2, V=100.
func Default() *Config {
	return &Config{
		PrimaryAddr: "localhost:4001",
		StatusAddr:  "localhost:4080",
		Workers: map[string]NodeConfig{
			"node1": {Address: "localhost:5001"},
			"node2": {Address: "localhost:5002"},
			"node3": {Address: "localhost:5003"},
			"node4": {Address: "localhost:5004"},
		},
		ReplicationFactor: 2,
		VirtualNodes:      100,
		WorkerCapacity:    3,
		ProbeInterval:     3 * time.Second,
		ProbeTimeout:      1 * time.Second,
		FetchTimeout:      3 * time.Second,
		ReplicateTimeout:  3 * time.Second,
		AcceptRatePerSec:  200,
		AcceptBurst:       100,
		Seed: map[string]string{
			"hello": "world",
			"code":  "it559",
			"dis":   "sys",
		},
	}
}

// Load reads a YAML config file decoded over Default(), so any field the
// file does not set keeps its default and partial files are valid. A field
// the file sets explicitly, even to a zero value, takes the file's value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// NodeIDs returns the roster's node identifiers.
func (c *Config) NodeIDs() []string {
	ids := make([]string, 0, len(c.Workers))
	for id := range c.Workers {
		ids = append(ids, id)
	}
	return ids
}

// Address looks up a worker's transport endpoint by NodeId.
func (c *Config) Address(nodeID string) (string, bool) {
	n, ok := c.Workers[nodeID]
	if !ok {
		return "", false
	}
	return n.Address, true
}
