package report

import (
	"fmt"
	"io"
	"strings"

	"probe/internal/probe"
)

// renderText prints one line per evaluated step, the missing paths under a failing
// step, and a closing banner.
func renderText(w io.Writer, r *probe.Report, opts Options) error {
	st := newStyles(w, opts.Color)
	var b strings.Builder

	fmt.Fprintln(&b, st.Title.Render(fmt.Sprintf("Probing %s in %s", r.Checklist, r.Root)))

	for _, s := range r.Steps {
		if s.Status == probe.StatusSkipped && !opts.ShowSkipped {
			continue
		}
		line := fmt.Sprintf("  %s %s", statusMark(s.Status), s.Step.Name)
		switch {
		case s.Status == probe.StatusPass:
			fmt.Fprintln(&b, st.Pass.Render(line))
		case s.Status == probe.StatusSkipped:
			fmt.Fprintln(&b, st.Skipped.Render(line))
		default:
			fmt.Fprintln(&b, st.Fail.Render(line))
		}

		for _, t := range s.Targets {
			if !t.Status.Failed() {
				continue
			}
			detail := fmt.Sprintf("      %s: %s", describe(t), t.Target.Path)
			if t.Status == probe.StatusError && t.Detail != "" {
				detail += " (" + t.Detail + ")"
			}
			fmt.Fprintln(&b, st.Detail.Render(detail))
		}
	}

	passed, failed, skipped := r.Counts()
	total := len(r.Steps)
	if r.Passed() {
		fmt.Fprintln(&b, st.Banner.Render(fmt.Sprintf("All deployment artifacts present (%d/%d checks passed)", passed, total)))
	} else {
		msg := fmt.Sprintf("FAILED: %d/%d checks passed", passed, total)
		if failed > 0 {
			msg += fmt.Sprintf(", %d failed", failed)
		}
		if skipped > 0 {
			msg += fmt.Sprintf(", %d not checked", skipped)
		}
		fmt.Fprintln(&b, st.Failure.Render(msg))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func describe(t probe.TargetResult) string {
	switch t.Status {
	case probe.StatusMissing:
		return "missing " + string(t.Target.Kind)
	case probe.StatusWrongKind:
		return "not a " + string(t.Target.Kind)
	default:
		return "cannot check"
	}
}
