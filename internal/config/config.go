package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace state directory.
const DirName = ".probe"

// Config holds all probe configuration.
type Config struct {
	// Root is the directory tree to probe. Relative to the workspace when not absolute.
	Root string `yaml:"root"`

	// Manifest is a YAML checklist. Empty means the built-in week9 checklist.
	Manifest string `yaml:"manifest"`

	// FailFast stops at the first missing artifact.
	FailFast bool `yaml:"fail_fast"`

	// Concurrency bounds parallel step checks when FailFast is off.
	Concurrency int `yaml:"concurrency"`

	// RunTimeout bounds a single probe run.
	RunTimeout string `yaml:"run_timeout"`

	Output  OutputConfig  `yaml:"output"`
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Root:        ".",
		FailFast:    true,
		Concurrency: 4,
		RunTimeout:  "30s",
		Output:      DefaultOutputConfig(),
		History:     DefaultHistoryConfig(),
		Watch:       DefaultWatchConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the config path for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, DirName, "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults. Environment overrides are always applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PROBE_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("PROBE_MANIFEST"); v != "" {
		c.Manifest = v
	}
	if v := os.Getenv("PROBE_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("PROBE_HISTORY_DB"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("PROBE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Output.Color = false
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root must not be empty")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if !isValidFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (valid: %v)", c.Output.Format, ValidFormats)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0, got %d", c.History.Keep)
	}
	for name, d := range map[string]string{
		"run_timeout":    c.RunTimeout,
		"watch.debounce": c.Watch.Debounce,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, d, err)
		}
	}
	return nil
}

// ResolveRoot returns the probe root as an absolute path under workspace.
func (c *Config) ResolveRoot(workspace string) string {
	return resolve(workspace, c.Root)
}

// ResolveManifest returns the manifest path under workspace, or "" for the built-in checklist.
func (c *Config) ResolveManifest(workspace string) string {
	if c.Manifest == "" {
		return ""
	}
	return resolve(workspace, c.Manifest)
}

// GetRunTimeout returns the run timeout as a duration.
func (c *Config) GetRunTimeout() time.Duration {
	d, err := time.ParseDuration(c.RunTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func resolve(workspace, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(workspace, p)
}
