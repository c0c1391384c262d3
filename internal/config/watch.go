package config

import "time"

// WatchConfig configures `probe watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
	// ClearScreen clears the terminal before each re-run.
	ClearScreen bool `yaml:"clear_screen"`
}

// DefaultWatchConfig returns the default watch settings.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{Debounce: "300ms"}
}

// GetDebounce returns the debounce interval as a duration.
func (w WatchConfig) GetDebounce() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}
