package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"probe/internal/checklist"
	"probe/internal/config"
	"probe/internal/logging"

	"github.com/spf13/cobra"
)

var forceInit bool

// initCmd writes the default manifest and config
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default checklist and config under .probe/",
	Long: `Creates .probe/probe.yaml with the built-in checklist and .probe/config.yaml
pointing at it. Existing files are left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := filepath.Join(workspace, config.DirName)
	manifestPath := filepath.Join(dir, "probe.yaml")
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath(workspace)
	}

	wrote, err := writeIfAbsent(manifestPath, func() error {
		return checklist.Default().Save(manifestPath)
	})
	if err != nil {
		return err
	}
	printInitResult(out, manifestPath, wrote)

	wrote, err = writeIfAbsent(cfgPath, func() error {
		c := config.DefaultConfig()
		c.Manifest = filepath.Join(config.DirName, "probe.yaml")
		return c.Save(cfgPath)
	})
	if err != nil {
		return err
	}
	printInitResult(out, cfgPath, wrote)

	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditManifestInit,
		Target:    manifestPath,
		Success:   true,
	})
	return nil
}

func writeIfAbsent(path string, write func() error) (bool, error) {
	if _, err := os.Stat(path); err == nil && !forceInit {
		return false, nil
	}
	if err := write(); err != nil {
		return false, err
	}
	return true, nil
}

func printInitResult(out io.Writer, path string, wrote bool) {
	rel, err := filepath.Rel(workspace, path)
	if err != nil {
		rel = path
	}
	if wrote {
		fmt.Fprintf(out, "created %s\n", rel)
	} else {
		fmt.Fprintf(out, "exists  %s (use --force to overwrite)\n", rel)
	}
}
