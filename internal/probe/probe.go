// Package probe evaluates a checklist against a directory tree.
//
// In fail-fast mode (the default) steps and their targets are checked strictly in
// manifest order and the run stops at the first failing target; everything after it
// is reported as skipped. In keep-going mode every step is checked, concurrently,
// and results are still reported in manifest order.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"probe/internal/checklist"
	"probe/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrArtifactMissing is returned by Report.Err when a run did not pass.
var ErrArtifactMissing = errors.New("deployment artifact missing")

// Status is the outcome of a target or step.
type Status string

const (
	StatusPass      Status = "pass"
	StatusMissing   Status = "missing"    // path does not exist
	StatusWrongKind Status = "wrong_kind" // exists but is not the expected file/dir
	StatusError     Status = "error"      // stat failed for another reason
	StatusSkipped   Status = "skipped"    // not evaluated (fail-fast stopped earlier)
)

// Failed reports whether the status counts as a failure.
func (s Status) Failed() bool {
	return s == StatusMissing || s == StatusWrongKind || s == StatusError
}

// TargetResult is the outcome of one target.
type TargetResult struct {
	Target checklist.Target `json:"target"`
	Status Status           `json:"status"`
	Detail string           `json:"detail,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step     checklist.Step `json:"step"`
	Status   Status         `json:"status"`
	Targets  []TargetResult `json:"targets"`
	Duration time.Duration  `json:"duration_ns"`
}

// FirstFailure returns the first failing target of the step, if any.
func (r StepResult) FirstFailure() (TargetResult, bool) {
	for _, t := range r.Targets {
		if t.Status.Failed() {
			return t, true
		}
	}
	return TargetResult{}, false
}

// Report is the result of one probe run.
type Report struct {
	RunID      string       `json:"run_id"`
	Checklist  string       `json:"checklist"`
	Root       string       `json:"root"`
	FailFast   bool         `json:"fail_fast"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
}

// Passed reports whether every step passed.
func (r *Report) Passed() bool {
	for _, s := range r.Steps {
		if s.Status != StatusPass {
			return false
		}
	}
	return len(r.Steps) > 0
}

// FirstFailure returns the first failing step and target in manifest order.
func (r *Report) FirstFailure() (StepResult, TargetResult, bool) {
	for _, s := range r.Steps {
		if t, ok := s.FirstFailure(); ok {
			return s, t, true
		}
	}
	return StepResult{}, TargetResult{}, false
}

// Failures returns every failing target in manifest order.
func (r *Report) Failures() []TargetResult {
	var out []TargetResult
	for _, s := range r.Steps {
		for _, t := range s.Targets {
			if t.Status.Failed() {
				out = append(out, t)
			}
		}
	}
	return out
}

// Counts returns the number of passed, failed and skipped steps.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, s := range r.Steps {
		switch {
		case s.Status == StatusPass:
			passed++
		case s.Status == StatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	return passed, failed, skipped
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExitCode is 0 when every step passed and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Passed() {
		return 0
	}
	return 1
}

// Err returns nil for a passing run, otherwise an error wrapping ErrArtifactMissing
// that names the first failing path.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}
	if _, t, ok := r.FirstFailure(); ok {
		return fmt.Errorf("%w: %s (%s)", ErrArtifactMissing, t.Target.Path, t.Status)
	}
	return ErrArtifactMissing
}

func (r *Report) audit() {
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditRunStart,
		Timestamp: r.StartedAt.UnixMilli(),
		RunID:     r.RunID,
		Success:   true,
		Fields:    map[string]interface{}{"checklist": r.Checklist, "root": r.Root, "fail_fast": r.FailFast},
	})
	for _, s := range r.Steps {
		for _, t := range s.Targets {
			if t.Status == StatusSkipped {
				continue
			}
			logging.Audit(logging.AuditEvent{
				EventType: logging.AuditTargetCheck,
				RunID:     r.RunID,
				Target:    t.Target.Path,
				Status:    string(t.Status),
				Success:   t.Status == StatusPass,
			})
		}
	}
	logging.Audit(logging.AuditEvent{
		EventType:  logging.AuditRunComplete,
		RunID:      r.RunID,
		Success:    r.Passed(),
		DurationMs: r.Duration().Milliseconds(),
	})
}

// Options controls how a run evaluates steps.
type Options struct {
	// FailFast stops at the first failing target.
	FailFast bool
	// Concurrency bounds parallel step evaluation when FailFast is false.
	Concurrency int
}

// DefaultOptions stops at the first missing artifact.
func DefaultOptions() Options {
	return Options{FailFast: true, Concurrency: 4}
}

// Runner evaluates checklists.
type Runner struct {
	opts Options
	stat func(string) (fs.FileInfo, error)
	now  func() time.Time
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{opts: opts, stat: os.Stat, now: time.Now}
}

// Run evaluates the checklist under root.
func (r *Runner) Run(ctx context.Context, root string, c *checklist.Checklist) (*Report, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checklist: %w", err)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Checklist: c.Name,
		Root:      root,
		FailFast:  r.opts.FailFast,
		StartedAt: r.now(),
		Steps:     make([]StepResult, len(c.Steps)),
	}

	logging.Probe("run %s: checklist=%s root=%s steps=%d fail_fast=%v",
		report.RunID, c.Name, root, len(c.Steps), r.opts.FailFast)

	var err error
	if r.opts.FailFast {
		err = r.runSequential(ctx, root, c, report)
	} else {
		err = r.runConcurrent(ctx, root, c, report)
	}
	if err != nil {
		return nil, err
	}

	report.FinishedAt = r.now()
	report.audit()
	passed, failed, skipped := report.Counts()
	logging.Probe("run %s finished in %v: passed=%d failed=%d skipped=%d",
		report.RunID, report.Duration(), passed, failed, skipped)
	return report, nil
}

func (r *Runner) runSequential(ctx context.Context, root string, c *checklist.Checklist, report *Report) error {
	stopped := false
	for i, step := range c.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stopped {
			report.Steps[i] = skippedStep(step, 0)
			continue
		}
		report.Steps[i] = r.checkStep(root, step, true)
		if report.Steps[i].Status != StatusPass {
			stopped = true
			if _, t, ok := report.FirstFailure(); ok {
				logging.ProbeDebug("stopping at %s: %s", t.Target.Path, t.Status)
			}
		}
	}
	return nil
}

func (r *Runner) runConcurrent(ctx context.Context, root string, c *checklist.Checklist, report *Report) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, step := range c.Steps {
		i, step := i, step
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each goroutine owns its own slot.
			report.Steps[i] = r.checkStep(root, step, false)
			return nil
		})
	}
	return g.Wait()
}

// checkStep evaluates targets in order. When stopEarly is set the remaining
// targets after a failure are marked skipped.
func (r *Runner) checkStep(root string, step checklist.Step, stopEarly bool) StepResult {
	start := r.now()
	res := StepResult{Step: step, Status: StatusPass, Targets: make([]TargetResult, 0, len(step.Targets))}

	for idx, t := range step.Targets {
		tr := r.checkTarget(root, t)
		res.Targets = append(res.Targets, tr)
		if tr.Status.Failed() {
			if res.Status == StatusPass {
				res.Status = tr.Status
			}
			if stopEarly {
				for _, rest := range step.Targets[idx+1:] {
					res.Targets = append(res.Targets, TargetResult{Target: rest, Status: StatusSkipped})
				}
				break
			}
		}
	}

	res.Duration = r.now().Sub(start)
	return res
}

func skippedStep(step checklist.Step, d time.Duration) StepResult {
	res := StepResult{Step: step, Status: StatusSkipped, Duration: d}
	for _, t := range step.Targets {
		res.Targets = append(res.Targets, TargetResult{Target: t, Status: StatusSkipped})
	}
	return res
}

func (r *Runner) checkTarget(root string, t checklist.Target) TargetResult {
	return checkWith(r.stat, root, t)
}

// CheckTarget evaluates a single target with [ -f ] / [ -d ] semantics: symlinks are
// followed and the final object must be a regular file or a directory.
func CheckTarget(root string, t checklist.Target) TargetResult {
	return checkWith(os.Stat, root, t)
}

func checkWith(stat func(string) (fs.FileInfo, error), root string, t checklist.Target) TargetResult {
	path := t.Resolve(root)
	info, err := stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return TargetResult{Target: t, Status: StatusMissing, Detail: "not found"}
		}
		return TargetResult{Target: t, Status: StatusError, Detail: err.Error()}
	}

	switch t.Kind {
	case checklist.KindFile:
		if !info.Mode().IsRegular() {
			return TargetResult{Target: t, Status: StatusWrongKind, Detail: "not a regular file"}
		}
	case checklist.KindDir:
		if !info.IsDir() {
			return TargetResult{Target: t, Status: StatusWrongKind, Detail: "not a directory"}
		}
	}
	return TargetResult{Target: t, Status: StatusPass}
}
