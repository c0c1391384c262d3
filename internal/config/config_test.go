package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProbeEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PROBE_ROOT", "PROBE_MANIFEST", "PROBE_FORMAT", "PROBE_HISTORY_DB", "PROBE_DEBUG"} {
		t.Setenv(k, "")
	}
	// t.Setenv cannot unset; restore NO_COLOR manually.
	if v, ok := os.LookupEnv("NO_COLOR"); ok {
		os.Unsetenv("NO_COLOR")
		t.Cleanup(func() { os.Setenv("NO_COLOR", v) })
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.Root)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.True(t, cfg.History.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearProbeEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearProbeEnv(t)

	path := DefaultPath(t.TempDir())
	cfg := DefaultConfig()
	cfg.Root = "site"
	cfg.Manifest = "checks.yaml"
	cfg.FailFast = false
	cfg.Output.Format = "json"
	cfg.Logging.Categories = map[string]bool{"watch": false}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearProbeEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: app\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Root)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: [\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearProbeEnv(t)
	t.Setenv("PROBE_ROOT", "/srv/app")
	t.Setenv("PROBE_MANIFEST", "m.yaml")
	t.Setenv("PROBE_FORMAT", "markdown")
	t.Setenv("PROBE_HISTORY_DB", "/tmp/h.db")
	t.Setenv("PROBE_DEBUG", "true")
	t.Setenv("NO_COLOR", "1")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/srv/app", cfg.Root)
	assert.Equal(t, "m.yaml", cfg.Manifest)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "/tmp/h.db", cfg.History.Path)
	assert.True(t, cfg.Logging.DebugMode)
	assert.False(t, cfg.Output.Color)
}

func TestEnvOverrides_BadBoolIgnored(t *testing.T) {
	clearProbeEnv(t)
	t.Setenv("PROBE_DEBUG", "sometimes")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	assert.False(t, cfg.Logging.DebugMode)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Root = "" }},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }},
		{"negative keep", func(c *Config) { c.History.Keep = -5 }},
		{"bad timeout", func(c *Config) { c.RunTimeout = "soon" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "1 sec" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Resolve(t *testing.T) {
	ws := t.TempDir()
	cfg := DefaultConfig()

	assert.Equal(t, ws, cfg.ResolveRoot(ws))
	assert.Equal(t, "", cfg.ResolveManifest(ws))
	assert.Equal(t, filepath.Join(ws, ".probe", "history.db"), cfg.History.ResolvePath(ws))

	cfg.Root = "/abs/elsewhere/"
	assert.Equal(t, filepath.Clean("/abs/elsewhere"), cfg.ResolveRoot(ws))

	cfg.Manifest = "checks/probe.yaml"
	assert.Equal(t, filepath.Join(ws, "checks", "probe.yaml"), cfg.ResolveManifest(ws))
}

func TestConfig_Durations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.GetRunTimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.GetDebounce())

	cfg.RunTimeout = "bogus"
	cfg.Watch.Debounce = "-1s"
	assert.Equal(t, 30*time.Second, cfg.GetRunTimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.GetDebounce())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("probe"))

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("probe"))

	lc.Categories = map[string]bool{"probe": false}
	assert.False(t, lc.IsCategoryEnabled("probe"))
	assert.True(t, lc.IsCategoryEnabled("history"))

	lc.Format = "json"
	opts := lc.Options()
	assert.True(t, opts.JSONFormat)
	assert.True(t, opts.DebugMode)
}
