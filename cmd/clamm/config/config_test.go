package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clamm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `
store:
  backend: leveldb
  path: /var/lib/clamm
metricsAddr: ":9100"
`))
		require.NoError(t, err)
		assert.Equal(t, BackendLevelDB, cfg.Store.Backend)
		assert.Equal(t, "/var/lib/clamm", cfg.Store.Path)
		assert.Equal(t, ":9100", cfg.MetricsAddr)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "store: {backend: redis}"},
		{"leveldb without path", "store: {backend: leveldb}"},
		{"sqlite without path", "store: {backend: sqlite}"},
		{"unknown log level", "logLevel: loud"},
		{"malformed yaml", "store: ["},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_SetLogLevel(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetLogLevel("debug"))
	assert.Equal(t, "debug", cfg.LogLevel)

	err := cfg.SetLogLevel("verbose")
	assert.ErrorContains(t, err, `unknown log level "verbose"`)
	assert.Equal(t, "debug", cfg.LogLevel)
}
