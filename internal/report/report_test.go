package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"probe/internal/checklist"
	"probe/internal/probe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(failAt int) *probe.Report {
	c := checklist.Default()
	r := &probe.Report{
		RunID:      "0b5c6c52-0000-4000-8000-000000000001",
		Checklist:  c.Name,
		Root:       "/srv/app",
		FailFast:   true,
		StartedAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 2, 10, 0, 1, 0, time.UTC),
	}
	for i, s := range c.Steps {
		sr := probe.StepResult{Step: s, Status: probe.StatusPass}
		for _, t := range s.Targets {
			status := probe.StatusPass
			switch {
			case failAt >= 0 && i == failAt:
				status = probe.StatusMissing
			case failAt >= 0 && i > failAt:
				status = probe.StatusSkipped
			}
			sr.Targets = append(sr.Targets, probe.TargetResult{Target: t, Status: status})
		}
		if failAt >= 0 && i == failAt {
			sr.Status = probe.StatusMissing
			// Only the first target is reported missing; the rest were skipped.
			for j := 1; j < len(sr.Targets); j++ {
				sr.Targets[j].Status = probe.StatusSkipped
			}
		} else if failAt >= 0 && i > failAt {
			sr.Status = probe.StatusSkipped
		}
		r.Steps = append(r.Steps, sr)
	}
	return r
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "md": FormatMarkdown, "markdown": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestRenderText_Success(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(-1), Options{Format: FormatText}))

	out := buf.String()
	assert.Contains(t, out, "Probing week9 in /srv/app")
	assert.Equal(t, 5, strings.Count(out, "✓"))
	assert.Contains(t, out, "All deployment artifacts present (5/5 checks passed)")
	assert.NotContains(t, out, "FAILED")
}

func TestRenderText_Failure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(2), Options{Format: FormatText}))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "✓"))
	assert.Contains(t, out, "✗ Documentation")
	assert.Contains(t, out, "missing file: README.md")
	assert.NotContains(t, out, "DEPLOYMENT_GUIDE", "skipped targets are not listed")
	assert.NotContains(t, out, "Backend structure", "skipped steps hidden by default")
	assert.Contains(t, out, "FAILED: 2/5 checks passed, 1 failed, 2 not checked")
}

func TestRenderText_ShowSkipped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(0), Options{Format: FormatText, ShowSkipped: true}))

	out := buf.String()
	assert.Contains(t, out, "- Frontend structure")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(4), Options{Format: FormatJSON}))

	var decoded probe.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "0b5c6c52-0000-4000-8000-000000000001", decoded.RunID)
	require.Len(t, decoded.Steps, 5)
	assert.Equal(t, probe.StatusMissing, decoded.Steps[4].Status)
	assert.False(t, decoded.Passed())
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport(3))
	assert.Contains(t, md, "# Probe report: week9")
	assert.Contains(t, md, "**Result:** FAIL")
	assert.Contains(t, md, "| 4 | Backend structure | `backend/app` (dir) | ✗ missing |")
	assert.Contains(t, md, "| 4 | Backend structure | `backend/main.py` (file) | - skipped |")
}

func TestRenderMarkdown_Raw(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(-1), Options{Format: FormatMarkdown}))
	assert.Equal(t, Markdown(sampleReport(-1)), buf.String())
}

func TestRenderMarkdown_Glamour(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(-1), Options{Format: FormatMarkdown, Glamour: true, WordWrap: 120}))
	out := buf.String()
	assert.Contains(t, out, "Probe report: week9")
	assert.Contains(t, out, "frontend/package.json")
}

func TestRender_UnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleReport(-1), Options{Format: "xml"}))
}

func TestTable(t *testing.T) {
	tbl := NewTable("Runs", "ID", "Result")
	tbl.AddRow("abc", "PASS")
	tbl.AddRow("defghi", "FAIL")

	var buf bytes.Buffer
	require.NoError(t, tbl.Render(&buf, false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Runs", lines[0])
	assert.Equal(t, " ID     | Result", lines[1])
	assert.Equal(t, " abc    | PASS", lines[3])
	assert.Equal(t, " defghi | FAIL", lines[4])
	assert.Equal(t, strings.Repeat("-", 17), lines[2])
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTable("Nothing", "A").Render(&buf, false))
	assert.Equal(t, "Nothing\n", buf.String())
}
