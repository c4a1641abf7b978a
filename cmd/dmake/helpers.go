package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/dmake/internal/backend"
	"github.com/aristath/dmake/internal/dmake"
	"github.com/aristath/dmake/internal/rulefile"
)

const flagKeepGoing = "keep-going"

// buildOptions are the make switches dmake.BindFlags does not cover.
type buildOptions struct {
	ruleFiles []string
	keepGoing bool
	question  string
	touch     string
	debug     string
	makeCmd   string
	tempDir   string
}

func bindBuildFlags(cmd *cobra.Command, o *buildOptions) {
	fs := cmd.Flags()
	dmake.BindFlags(fs)
	fs.StringArrayVarP(&o.ruleFiles, "rules", "f", nil, "rule file (.yaml, .yml or .hcl); repeatable")
	fs.BoolVarP(&o.keepGoing, flagKeepGoing, "k", false, "keep going when some targets fail (make -k)")
	fs.StringVarP(&o.question, "question", "q", "", "value passed to make -q")
	fs.StringVarP(&o.touch, "touch", "t", "", "value passed to make -t")
	fs.StringVarP(&o.debug, "debug", "d", "", "value passed to make -d")
	fs.StringVar(&o.makeCmd, "make", "", "make binary (overrides config)")
	fs.StringVar(&o.tempDir, "temp-dir", "", "directory for the generated Makefile (overrides config)")
	_ = cmd.MarkFlagRequired("rules")
}

// newDistributedMake builds an orchestrator from config, then flags, then the
// rule files. Flags left at their defaults do not override config.
func newDistributedMake(a *app, cmd *cobra.Command, o *buildOptions, extra ...dmake.Option) (*dmake.DistributedMake, error) {
	cfg := a.cfg
	fs := cmd.Flags()

	opts := dmake.DefaultOptions()
	opts.Jobs = cfg.Defaults.Jobs
	opts.KeepGoing = cfg.Defaults.KeepGoing
	if fs.Changed(flagKeepGoing) {
		opts.KeepGoing = o.keepGoing
	}
	opts.NoCleanup = cfg.Defaults.NoCleanup
	opts.Question = o.question
	opts.Touch = o.touch
	opts.Debug = o.debug

	schedCfg := cfg.SchedulerBackend()
	if fs.Changed(dmake.FlagScheduler) {
		schedCfg.Name, _ = fs.GetString(dmake.FlagScheduler)
	}
	sched, err := backend.New(schedCfg)
	if err != nil {
		return nil, err
	}

	makeCmd := cfg.Make.Command
	if o.makeCmd != "" {
		makeCmd = o.makeCmd
	}
	tempDir := cfg.Defaults.TempDir
	if o.tempDir != "" {
		tempDir = o.tempDir
	}

	options := []dmake.Option{
		dmake.WithScheduler(sched),
		dmake.WithMakeCommand(makeCmd),
		dmake.WithShell(cfg.Make.Shell),
		dmake.WithRecipeShell(cfg.Make.RecipeShell),
		dmake.WithTempDir(tempDir),
		dmake.WithLogger(a.logger),
		dmake.WithOutput(cmd.OutOrStdout()),
		dmake.WithStdout(cmd.OutOrStdout()),
		dmake.WithStderr(cmd.ErrOrStderr()),
	}
	dm := dmake.New(opts, append(options, extra...)...)

	args, err := changedArgs(cmd)
	if err != nil {
		return nil, err
	}
	if err := dm.ApplyArgs(args); err != nil {
		return nil, err
	}

	for _, path := range o.ruleFiles {
		n, err := rulefile.Load(path, dm)
		if err != nil {
			return nil, err
		}
		a.logger.WithField("file", path).WithField("rules", n).Debug("rules loaded")
	}

	return dm, nil
}

// changedArgs returns the dmake flags the user actually set. The scheduler
// is resolved separately so the configured slurm command survives.
func changedArgs(cmd *cobra.Command) (dmake.Args, error) {
	fs := cmd.Flags()
	args, err := dmake.ArgsFromFlags(fs)
	if err != nil {
		return dmake.Args{}, fmt.Errorf("reading flags: %w", err)
	}
	if !fs.Changed(dmake.FlagRun) {
		args.Run = nil
	}
	if !fs.Changed(dmake.FlagNoCleanup) {
		args.NoCleanup = nil
	}
	if !fs.Changed(dmake.FlagJobs) {
		args.Jobs = nil
	}
	args.Scheduler = nil
	return args, nil
}
