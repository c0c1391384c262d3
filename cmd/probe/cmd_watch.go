package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"probe/internal/checklist"
	"probe/internal/logging"
	"probe/internal/report"
	"probe/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd re-runs the probe on filesystem changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Probe now and again whenever the tree changes",
	Long: `Runs the probe once, then watches the root and every directory leading to a
checklist target. Each settled batch of changes triggers a new run.
Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := loadChecklist()
	if err != nil {
		return err
	}
	opts, err := reportOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watchLoop(ctx, cmd, c, opts)
}

// watchLoop blocks until ctx is done.
func watchLoop(ctx context.Context, cmd *cobra.Command, c *checklist.Checklist, opts report.Options) error {
	out := cmd.OutOrStdout()
	rerun := func(ctx context.Context) {
		runCtx, cancel := context.WithTimeout(ctx, cfg.GetRunTimeout())
		defer cancel()
		if cfg.Watch.ClearScreen {
			fmt.Fprint(out, "\033[H\033[2J")
		}
		if _, err := probeOnce(runCtx, out, c, opts); err != nil {
			logger.Warn("watch run failed", zap.Error(err))
		}
	}

	rerun(ctx)

	root := cfg.ResolveRoot(workspace)
	w, err := watch.New(root, c, cfg.Watch.GetDebounce(), func(ctx context.Context, changed []string) {
		logger.Debug("change detected", zap.Strings("paths", changed))
		fmt.Fprintln(out)
		rerun(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	logging.Watch("watching %s (%d dirs)", root, len(w.WatchedDirs()))
	fmt.Fprintf(out, "watching %s for changes (Ctrl-C to stop)\n", root)

	<-ctx.Done()
	w.Stop()
	stats := w.Stats()
	fmt.Fprintf(out, "stopped after %d re-run(s)\n", stats.Triggers)
	return nil
}
