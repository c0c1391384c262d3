package main

import (
	"context"
	"fmt"
	"io"

	"probe/internal/checklist"
	"probe/internal/history"
	"probe/internal/probe"
	"probe/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Run flags
var (
	rootFlag     string
	manifestFlag string
	formatFlag   string
	keepGoing    bool
	noColor      bool
	noHistory    bool
	showSkipped  bool
)

// runCmd probes the workspace once
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe the tree and exit 1 at the first missing artifact",
	Long: `Checks every step of the checklist in order. The run stops at the first
missing file or directory and exits 1; when every artifact is present the
checklist is printed and the exit code is 0.

With --keep-going every step is checked and all missing artifacts are listed.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&rootFlag, "root", "r", "", "Directory tree to probe (default from config)")
	cmd.Flags().StringVarP(&manifestFlag, "manifest", "m", "", "Checklist manifest (YAML); empty uses the built-in checklist")
}

func addRunFlags(cmd *cobra.Command) {
	addTargetFlags(cmd)
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Report format: text, json, markdown")
	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Check every step instead of stopping at the first miss")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	cmd.Flags().BoolVar(&showSkipped, "show-skipped", false, "List steps that were not checked")
}

// applyFlagOverrides copies explicitly set flags onto cfg.
func applyFlagOverrides(cmd *cobra.Command) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("root") {
		cfg.Root = rootFlag
	}
	if changed("manifest") {
		cfg.Manifest = manifestFlag
	}
	if changed("format") {
		cfg.Output.Format = formatFlag
	}
	if changed("keep-going") {
		cfg.FailFast = !keepGoing
	}
	if changed("no-color") && noColor {
		cfg.Output.Color = false
	}
	if changed("no-history") && noHistory {
		cfg.History.Enabled = false
	}
	if changed("show-skipped") {
		cfg.Output.ShowSkips = showSkipped
	}
}

// loadChecklist returns the configured manifest or the built-in checklist.
func loadChecklist() (*checklist.Checklist, error) {
	path := cfg.ResolveManifest(workspace)
	if path == "" {
		return checklist.Default(), nil
	}
	c, err := checklist.Load(path)
	if err != nil {
		return nil, &exitError{code: exitUsage, err: err}
	}
	return c, nil
}

func reportOptions() (report.Options, error) {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return report.Options{}, &exitError{code: exitUsage, err: err}
	}
	return report.Options{
		Format:      format,
		Color:       cfg.Output.Color,
		Glamour:     cfg.Output.Glamour,
		WordWrap:    cfg.Output.WordWrap,
		ShowSkipped: cfg.Output.ShowSkips,
	}, nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	c, err := loadChecklist()
	if err != nil {
		return err
	}
	opts, err := reportOptions()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetRunTimeout())
	defer cancel()

	rep, err := probeOnce(ctx, cmd.OutOrStdout(), c, opts)
	if err != nil {
		return err
	}
	if !rep.Passed() {
		return &exitError{code: exitMissing, err: rep.Err()}
	}
	return nil
}

// probeOnce runs the checklist, renders the report and records it.
func probeOnce(ctx context.Context, out io.Writer, c *checklist.Checklist, opts report.Options) (*probe.Report, error) {
	root := cfg.ResolveRoot(workspace)
	runner := probe.NewRunner(probe.Options{
		FailFast:    cfg.FailFast,
		Concurrency: cfg.Concurrency,
	})

	rep, err := runner.Run(ctx, root, c)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	if err := report.Render(out, rep, opts); err != nil {
		return nil, err
	}

	if cfg.History.Enabled {
		if err := recordHistory(ctx, rep); err != nil {
			// History is best effort; the probe result stands.
			logger.Warn("failed to record history", zap.String("run_id", rep.RunID), zap.Error(err))
		}
	}

	logger.Debug("probe complete",
		zap.String("run_id", rep.RunID),
		zap.Bool("passed", rep.Passed()),
		zap.Duration("duration", rep.Duration()),
	)
	return rep, nil
}

func recordHistory(ctx context.Context, rep *probe.Report) error {
	store, err := history.Open(cfg.History.ResolvePath(workspace))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Record(ctx, rep); err != nil {
		return err
	}
	if cfg.History.Keep > 0 {
		if _, err := store.Prune(ctx, cfg.History.Keep); err != nil {
			return err
		}
	}
	return nil
}
