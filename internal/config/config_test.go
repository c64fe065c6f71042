package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadDefaults tests loading with no file and no environment
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Store.MaxConcurrentLoads)
	assert.Equal(t, 15*time.Minute, cfg.Query.CacheTTL)
	assert.Equal(t, 128, cfg.Query.CacheMaxEntries)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, filepath.IsAbs(cfg.Store.RootDir))
	assert.Empty(t, cfg.Diagnostics.Addr)
}

// TestLoadFromFile tests YAML parsing including expressions
func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
store:
  root_dir: /data/ensembles
  max_concurrent_loads: 4
query:
  resampling_frequency: MONTHLY
  cache_ttl: 5m
export:
  format: xlsx
expressions:
  - name: TOTAL
    expression: x+y
    variableVectorMap:
      x: FOPT
      y: FWPT
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/ensembles", cfg.Store.RootDir)
	assert.Equal(t, 4, cfg.Store.MaxConcurrentLoads)
	assert.Equal(t, "MONTHLY", cfg.Query.ResamplingFrequency)
	assert.Equal(t, 5*time.Minute, cfg.Query.CacheTTL)
	assert.Equal(t, "xlsx", cfg.Export.Format)

	require.Len(t, cfg.Expressions, 1)
	assert.Equal(t, "TOTAL", cfg.Expressions[0].Name)
	assert.Equal(t, "x+y", cfg.Expressions[0].Expression)
	assert.Equal(t, map[string]string{"x": "FOPT", "y": "FWPT"}, cfg.Expressions[0].VariableVectorMap)
}

// TestLoadEnvOverridesFile tests source precedence
func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
store:
  root_dir: /data/from-file
logging:
  level: warn
`)
	t.Setenv("SIM_STORE_ROOT_DIR", "/data/from-env")
	t.Setenv("SIM_QUERY_CACHE_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/from-env", cfg.Store.RootDir)
	assert.Equal(t, 90*time.Second, cfg.Query.CacheTTL)
	// file values survive where no env var is set
	assert.Equal(t, "warn", cfg.Logging.Level)
}

// TestLoadValidation tests range checks and normalization
func TestLoadValidation(t *testing.T) {
	t.Run("unsupported export format", func(t *testing.T) {
		path := writeConfigFile(t, "export:\n  format: pdf\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported export format")
	})

	t.Run("unsupported log level", func(t *testing.T) {
		path := writeConfigFile(t, "logging:\n  level: verbose\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported log level")
	})

	t.Run("non positive concurrency", func(t *testing.T) {
		path := writeConfigFile(t, "store:\n  max_concurrent_loads: -1\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "max_concurrent_loads")
	})

	t.Run("log format falls back to json", func(t *testing.T) {
		path := writeConfigFile(t, "logging:\n  format: yaml\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("expression without variables", func(t *testing.T) {
		path := writeConfigFile(t, `
expressions:
  - name: TOTAL
    expression: x+y
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "maps no variables")
	})
}

// TestDefault tests the programmatic default configuration
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultStoreRoot, cfg.Store.RootDir)
	assert.Equal(t, DefaultConcurrentLoad, cfg.Store.MaxConcurrentLoads)
	assert.Equal(t, DefaultCacheTTL, cfg.Query.CacheTTL)
	assert.Equal(t, DefaultExportFormat, cfg.Export.Format)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Diagnostics.ShutdownTimeout)
}
