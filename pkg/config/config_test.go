package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())
}

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
collectionsDir: collections
pattern: "**/*.json"
mountPrefix: /mock
watch: true
pollInterval: 2s
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "collections", cfg.CollectionsDir)
	assert.Equal(t, "**/*.json", cfg.Pattern)
	assert.Equal(t, "/mock", cfg.MountPrefix)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, "mock_data", cfg.DataDir)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("collectionsDir: [unclosed"))
	assert.True(t, errors.Is(err, ErrInvalidYAML))

	_, err = Parse([]byte("colectionsDir: typo"))
	assert.True(t, errors.Is(err, ErrInvalidYAML))

	cfg, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "collmock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collectionsDir: collections\ndataDir: /abs/data\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "collections"), cfg.CollectionsDir)
	assert.Equal(t, "/abs/data", cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "endpoints"), cfg.EndpointsDir)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing collections dir", func(c *Config) { c.CollectionsDir = "" }, "collectionsDir"},
		{"bad pattern", func(c *Config) { c.Pattern = "[" }, "pattern"},
		{"data dir equals collections", func(c *Config) { c.DataDir = c.CollectionsDir }, "dataDir"},
		{"endpoints dir equals data dir", func(c *Config) { c.EndpointsDir = "./" + c.DataDir }, "endpointsDir"},
		{"data dir inside collections", func(c *Config) { c.DataDir = c.CollectionsDir + "/mock_data" }, "dataDir"},
		{"endpoints dir inside collections", func(c *Config) { c.EndpointsDir = "./" + c.CollectionsDir + "/stubs/" }, "endpointsDir"},
		{"collections inside data dir", func(c *Config) { c.CollectionsDir = c.DataDir + "/cols" }, "dataDir"},
		{"endpoints dir inside data dir", func(c *Config) { c.EndpointsDir = c.DataDir + "/endpoints" }, "endpointsDir"},
		{"bad mount", func(c *Config) { c.MountPrefix = "/api?x" }, "mountPrefix"},
		{"negative poll interval", func(c *Config) { c.PollInterval = -time.Second }, "pollInterval"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_SiblingDirs(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CollectionsDir = "cols"
	cfg.DataDir = "cols-data"
	cfg.EndpointsDir = "../endpoints"
	require.NoError(t, cfg.Validate())

	cfg.DataDir = "cols/../data"
	require.NoError(t, cfg.Validate())

	cfg.DataDir = "cols/nested/../data"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not overlap collectionsDir")
}

func TestFindPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/collmock.yaml")

	assert.Equal(t, "explicit.yaml", FindPath("explicit.yaml"))
	assert.Equal(t, "/etc/collmock.yaml", FindPath(""))
}
