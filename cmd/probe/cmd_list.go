package main

import (
	"fmt"

	"probe/internal/report"

	"github.com/spf13/cobra"
)

// listCmd prints the active checklist
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the checklist that run would evaluate",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	addTargetFlags(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := loadChecklist()
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Checklist %s (%d steps, %d targets)", c.Name, len(c.Steps), c.TargetCount())
	tbl := report.NewTable(title, "#", "Step", "Kind", "Path")
	for i, s := range c.Steps {
		for j, t := range s.Targets {
			num, name := "", ""
			if j == 0 {
				num, name = fmt.Sprint(i+1), s.Name
			}
			tbl.AddRow(num, name, string(t.Kind), t.Path)
		}
	}
	return tbl.Render(cmd.OutOrStdout(), cfg.Output.Color)
}
