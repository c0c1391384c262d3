package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"probe/internal/probe"
)

// Markdown returns the report as a markdown document.
func Markdown(r *probe.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Probe report: %s\n\n", r.Checklist)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- **Root:** `%s`\n", r.Root)
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	if r.Passed() {
		b.WriteString("- **Result:** PASS\n\n")
	} else {
		b.WriteString("- **Result:** FAIL\n\n")
	}

	b.WriteString("| # | Step | Target | Status |\n")
	b.WriteString("|---|------|--------|--------|\n")
	for i, s := range r.Steps {
		for _, t := range s.Targets {
			fmt.Fprintf(&b, "| %d | %s | `%s` (%s) | %s %s |\n",
				i+1, escapeCell(s.Step.Name), t.Target.Path, t.Target.Kind, statusMark(t.Status), t.Status)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func renderMarkdown(w io.Writer, r *probe.Report, opts Options) error {
	md := Markdown(r)
	if !opts.Glamour {
		_, err := io.WriteString(w, md)
		return err
	}

	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = 80
	}
	style := glamour.WithStylePath("notty")
	if opts.Color {
		style = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
