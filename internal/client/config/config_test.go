package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"test"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetArgs(t)

	cfg := LoadConfig()
	require.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.NotEmpty(t, cfg.IdentityFile)
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	resetArgs(t, "-a", "http://backend:9090", "-i", "7", "-f", "id.json")

	cfg := LoadConfig()
	require.Equal(t, "http://backend:9090", cfg.ServerEndpointAddr)
	require.Equal(t, 7*time.Second, cfg.PollInterval)
	require.Equal(t, "id.json", cfg.IdentityFile)
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	body := `{
		"server_endpoint_addr": "http://backend:7070",
		"poll_interval": "5s",
		"identity_file": "/tmp/id.json"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	resetArgs(t, "-c", path)

	cfg := LoadConfig()
	require.Equal(t, "http://backend:7070", cfg.ServerEndpointAddr)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, "/tmp/id.json", cfg.IdentityFile)
}
