package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aristath/dmake/internal/config"
	"github.com/aristath/dmake/internal/logging"
)

// app holds state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string // Overrides the project config when set
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
}

// exitError carries make's exit status out of a command without printing
// an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dmake",
		Short: "dmake writes build rules to a Makefile and runs make on it",
		Long: `dmake turns declarative build rules into a Makefile and hands it to GNU make,
optionally dispatching every recipe command through a cluster scheduler such as Slurm.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "project config file (default .dmake/config.json)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(
		newRunCmd(a),
		newPlanCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

// load reads the layered config and builds the logger.
func (a *app) load(stderr io.Writer) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger, err := logging.New(level, stderr)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// loadConfig uses the conventional paths unless --config replaces the
// project file.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		return config.LoadDefault()
	}
	globalPath, _, err := config.Paths()
	if err != nil {
		return nil, err
	}
	return config.Load(globalPath, a.configPath)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
