package config

import "strings"

// ValidFormats lists the supported report formats.
var ValidFormats = []string{"text", "json", "markdown"}

// OutputConfig configures report rendering.
type OutputConfig struct {
	Format string `yaml:"format"` // text, json, markdown
	Color  bool   `yaml:"color"`
	// Glamour renders markdown for the terminal instead of printing raw markdown.
	Glamour   bool `yaml:"glamour"`
	WordWrap  int  `yaml:"word_wrap"`
	ShowSkips bool `yaml:"show_skipped"`
}

// DefaultOutputConfig returns the default output settings.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Format:   "text",
		Color:    true,
		Glamour:  true,
		WordWrap: 80,
	}
}

var formatAliases = map[string]string{"txt": "text", "md": "markdown"}

func isValidFormat(f string) bool {
	f = strings.ToLower(strings.TrimSpace(f))
	if alias, ok := formatAliases[f]; ok {
		f = alias
	}
	for _, v := range ValidFormats {
		if f == v {
			return true
		}
	}
	return false
}
