package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeed(t *testing.T) {
	cfg := Default()
	assert.Equal(t, map[string]string{"hello": "world", "code": "it559", "dis": "sys"}, cfg.Seed)
	assert.Len(t, cfg.Workers, 4)
	assert.Equal(t, 2, cfg.ReplicationFactor)
	assert.Equal(t, 100, cfg.VirtualNodes)
}

func TestLoadOverlaysPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replication_factor: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ReplicationFactor)
	assert.Equal(t, 100, cfg.VirtualNodes) // unset field keeps the default
	assert.Len(t, cfg.Workers, 4)          // unset field keeps the default
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestAddressLookup(t *testing.T) {
	cfg := Default()
	addr, ok := cfg.Address("node1")
	require.True(t, ok)
	assert.Equal(t, "localhost:5001", addr)

	_, ok = cfg.Address("ghost")
	assert.False(t, ok)
}
