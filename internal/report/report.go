// Package report renders probe reports as terminal text, JSON or markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"probe/internal/logging"
	"probe/internal/probe"
)

// Format selects a renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: text, json, markdown)", s)
	}
}

// Options controls rendering.
type Options struct {
	Format Format
	// Color enables ANSI styling in text output and glamour styles in markdown.
	Color bool
	// Glamour renders markdown through glamour instead of emitting raw markdown.
	Glamour     bool
	WordWrap    int
	ShowSkipped bool
}

// Render writes the report to w in the configured format.
func Render(w io.Writer, r *probe.Report, opts Options) error {
	logging.Report("rendering run %s as %s", r.RunID, opts.Format)

	switch opts.Format {
	case FormatJSON:
		return renderJSON(w, r)
	case FormatMarkdown:
		return renderMarkdown(w, r, opts)
	case FormatText, "":
		return renderText(w, r, opts)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

func renderJSON(w io.Writer, r *probe.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func statusMark(s probe.Status) string {
	switch s {
	case probe.StatusPass:
		return "✓"
	case probe.StatusSkipped:
		return "-"
	default:
		return "✗"
	}
}
