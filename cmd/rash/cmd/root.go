// Package cmd implements rash-go's own command line: a thin cobra
// wrapper whose flags are separated from the target script's own
// docopt-resolved flags by `--`.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/diff"
	"github.com/rash-sh/rash-go/internal/executor"
	"github.com/rash-sh/rash-go/internal/logging"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/modules"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/script"
	"github.com/rash-sh/rash-go/internal/template"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	verbose   bool
	checkMode bool
	diffMode  bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "rash <script> [-- script-args...]",
	Short: "rash-go - a declarative host-configuration engine",
	Long: `rash-go reads a shebang script whose header comment is a docopt help
block and whose body is a YAML task list, resolves the script's own
CLI against that header, and runs each task against a registered
module.

Options must be separated from rash's own flags with --:
  rash <script> [rash-options] -- [script-options]`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MinimumNArgs(1),
	RunE:          runScript,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose task logging")
	rootCmd.Flags().BoolVar(&checkMode, "check", false, "run every task in check mode (no mutation)")
	rootCmd.Flags().BoolVar(&diffMode, "diff", false, "print a unified diff of file-changing tasks")
	rootCmd.Flags().StringVarP(&configDir, "dir", "C", "", "project directory for config lookup (default: current)")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("rash {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runScript(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	scriptArgs := args[1:]
	if dashAt := cmd.ArgsLenAtDash(); dashAt >= 0 {
		scriptArgs = args[dashAt:]
	}

	dir := configDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
	}

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return err
	}
	if checkMode {
		cfg.Defaults.CheckMode = true
	}

	logger, closer, err := logging.NewFromConfig(cfg, dir)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	if verbose {
		logger = logging.NewWithLevel(slog.LevelDebug)
	}

	var sink diff.Sink = diff.NopSink{}
	if diffMode {
		sink = diff.NewUnifiedSink(os.Stderr, cfg.Diff.Color)
	}

	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading script %s: %w", scriptPath, err)
	}

	registry := modules.NewDefaultRegistry()

	s, err := script.Load(string(source), scriptArgs, registry, cfg.Defaults)
	if err != nil {
		var re *rerr.RashError
		if errors.As(err, &re) && re.Kind == rerr.GracefulExit {
			fmt.Println(re.Payload)
			return nil
		}
		return err
	}

	renderer := template.New()
	exec := executor.New(registry, renderer, cfg, logger, sink)

	ctx := context.Background()
	_, runErr := exec.Run(ctx, s.Tasks, s.Vars)
	if verbose {
		printTrace(exec.Trace)
	}
	if runErr != nil {
		var re *rerr.RashError
		if errors.As(runErr, &re) && re.Kind == rerr.GracefulExit {
			fmt.Println(re.Payload)
			return nil
		}
		return runErr
	}

	return nil
}

// printTrace prints the run's trace ring to stderr, one line per task
// execution, for --verbose diagnostics. The ring is process-lifetime
// only and is never written to disk.
func printTrace(ring *module.TraceRing) {
	if ring == nil {
		return
	}
	for _, entry := range ring.Entries() {
		fmt.Fprintf(os.Stderr, "trace run=%s task=%q module=%s changed=%t duration_ms=%d\n",
			entry.RunID, entry.TaskName, entry.Module, entry.Changed, entry.DurationMS)
	}
}
