package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.IP)
	require.Equal(t, uint32(8700), cfg.RPCPort)
	require.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pserver.yaml")
	require.NoError(t, writeFile(path, []byte(`
ip: 10.0.0.5
rpc_port: 9100
meta_addr: http://meta0:8900
data_dir: /var/lib/pserver
log_level: debug
`)))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", cfg.IP)
	require.Equal(t, uint32(9100), cfg.RPCPort)
	require.Equal(t, "http://meta0:8900", cfg.MetaAddr)
	require.Equal(t, "/var/lib/pserver", cfg.DataDir)
	require.Equal(t, "debug", cfg.LogLevel)
	// Fields the file doesn't mention keep their default.
	require.Equal(t, "127.0.0.1", cfg.RaftBindHost)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pserver.yaml")
	require.Error(t, err)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
