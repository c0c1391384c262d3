// Command probe verifies that a project tree contains its deployment artifacts.
//
// The default checklist checks, in order: .env.production, tests/test_integration.py,
// README.md + docs/DEPLOYMENT_GUIDE.md, backend/app + backend/main.py and
// frontend/src + frontend/package.json. The run stops at the first missing artifact
// and exits 1; when everything is present it prints the checklist and exits 0.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"probe/internal/config"
	"probe/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exitOK      = 0
	exitMissing = 1
	exitUsage   = 2
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Resolved per invocation
	cfg    *config.Config
	logger *zap.Logger
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check a project tree for its deployment artifacts",
	Long: `probe walks an ordered checklist of files and directories and reports
the first one that is missing.

Run without a subcommand to probe the workspace with the configured checklist.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: runProbe,
}

// setup resolves the workspace, loads config and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ws, err := resolveWorkspace(workspace)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	workspace = ws

	path := configPath
	if path == "" {
		path = config.DefaultPath(ws)
	}
	cfg, err = config.Load(path)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	applyFlagOverrides(cmd)
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitUsage, err: fmt.Errorf("invalid config: %w", err)}
	}

	if verbose {
		cfg.Logging.DebugMode = true
	}
	if err := logging.Initialize(ws, cfg.Logging.Options()); err != nil {
		logger.Warn("file logging disabled", zap.Error(err))
	}
	if err := logging.InitAudit(); err != nil {
		logger.Warn("audit log disabled", zap.Error(err))
	}
	logging.Config("loaded config from %s", path)

	logger.Debug("workspace resolved",
		zap.String("workspace", ws),
		zap.String("config", path),
		zap.String("root", cfg.ResolveRoot(ws)),
	)
	return nil
}

func resolveWorkspace(ws string) (string, error) {
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		ws = cwd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace %s is not a directory", abs)
	}
	return abs, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.probe/config.yaml)")

	addRunFlags(rootCmd)
	addRunFlags(runCmd)

	rootCmd.AddCommand(runCmd, listCmd, initCmd, historyCmd, watchCmd)
}

// exitCode maps an Execute error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

func main() {
	err := rootCmd.Execute()
	code := exitCode(err)
	if err != nil && code != exitMissing {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(code)
}
