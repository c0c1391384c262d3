package main

import (
	"fmt"
	"time"

	"probe/internal/history"
	"probe/internal/report"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyPrune int
)

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent probe runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the step results of a recorded run (id prefix accepted)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().IntVar(&historyPrune, "prune", -1, "Delete all but the newest N runs before listing")
	historyCmd.AddCommand(historyShowCmd)
}

func openHistory() (*history.Store, error) {
	return history.Open(cfg.History.ResolvePath(workspace))
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyPrune >= 0 {
		n, err := store.Prune(ctx, historyPrune)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d run(s)\n", n)
	}

	runs, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	tbl := report.NewTable(fmt.Sprintf("Last %d run(s)", len(runs)), "Run", "Started", "Checklist", "Result", "Steps", "First missing")
	for _, r := range runs {
		tbl.AddRow(
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Checklist,
			resultLabel(r.Passed),
			fmt.Sprintf("%d/%d", r.StepsPassed, r.StepsPassed+r.StepsFailed+r.StepsSkipped),
			r.FirstFailure,
		)
	}
	return tbl.Render(out, cfg.Output.Color)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  checklist: %s\n", run.Checklist)
	fmt.Fprintf(out, "  root:      %s\n", run.Root)
	fmt.Fprintf(out, "  started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  duration:  %v\n", run.Duration().Round(time.Microsecond))
	fmt.Fprintf(out, "  result:    %s\n", resultLabel(run.Passed))

	tbl := report.NewTable("", "#", "Step", "Status", "Missing")
	for _, s := range run.Steps {
		tbl.AddRow(fmt.Sprint(s.Seq+1), s.Name, string(s.Status), s.FailedTarget)
	}
	return tbl.Render(out, cfg.Output.Color)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func resultLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
