package config

import "path/filepath"

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Keep prunes to the newest N runs after each record. 0 keeps everything.
	Keep int `yaml:"keep"`
}

// DefaultHistoryConfig returns the default history settings.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled: true,
		Path:    filepath.Join(DirName, "history.db"),
		Keep:    500,
	}
}

// ResolvePath returns the database path under workspace.
func (h HistoryConfig) ResolvePath(workspace string) string {
	return resolve(workspace, h.Path)
}
