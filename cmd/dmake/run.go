package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/dmake/internal/backend"
	"github.com/aristath/dmake/internal/dmake"
	"github.com/aristath/dmake/internal/events"
	"github.com/aristath/dmake/internal/metrics"
	"github.com/aristath/dmake/internal/persistence"
	"github.com/aristath/dmake/internal/tui"
)

type runOptions struct {
	buildOptions
	tui             bool
	history         bool
	metricsTextfile string
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate the Makefile and run make on it",
		Long: `Loads the rule files, writes them to a transient Makefile and runs make on it.
Without --run make is invoked with -n and only prints the recipes.
dmake exits with make's exit status.`,
		Example: `  dmake run -f rules.yaml
  dmake run -f rules.hcl --run -j 8 --scheduler slurm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), a, cmd, o)
		},
	}

	bindBuildFlags(cmd, &o.buildOptions)
	cmd.Flags().BoolVar(&o.tui, "tui", false, "follow the build in a terminal UI")
	cmd.Flags().BoolVar(&o.history, "history", false, "record the run in the history database (overrides config)")
	cmd.Flags().StringVar(&o.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run (overrides config)")

	return cmd
}

func runBuild(ctx context.Context, a *app, cmd *cobra.Command, o *runOptions) error {
	pm := backend.NewProcessManager()
	defer func() {
		if ctx.Err() == nil {
			return
		}
		a.logger.Info("Shutdown signal received, cleaning up...")
		if err := pm.KillAll(); err != nil {
			a.logger.WithError(err).Error("Error killing subprocesses")
		}
	}()

	extra := []dmake.Option{dmake.WithProcessManager(pm)}

	textfile := a.cfg.Metrics.Textfile
	if o.metricsTextfile != "" {
		textfile = o.metricsTextfile
	}
	var recorder *metrics.Recorder
	if textfile != "" {
		recorder = metrics.NewRecorder()
		extra = append(extra, dmake.WithRecorder(recorder))
	}

	if o.history || a.cfg.History.Enabled {
		store, err := persistence.NewSQLiteStore(ctx, a.cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
		extra = append(extra, dmake.WithHistory(store))
	}

	// The alternate screen hides anything printed while the UI runs; the
	// command-line echoes are held back until it exits.
	var bus *events.EventBus
	var echo bytes.Buffer
	if o.tui {
		bus = events.NewEventBus()
		extra = append(extra,
			dmake.WithEventBus(bus),
			dmake.WithOutput(&echo),
			dmake.WithStdout(io.Discard),
			dmake.WithStderr(io.Discard),
		)
	}

	dm, err := newDistributedMake(a, cmd, &o.buildOptions, extra...)
	if err != nil {
		return err
	}

	var res dmake.Result
	var runErr error
	if bus != nil {
		res, runErr = executeWithTUI(ctx, a, cmd, dm, bus)
		if _, err := io.Copy(cmd.OutOrStdout(), &echo); err != nil {
			a.logger.WithError(err).Warn("failed to print command line")
		}
	} else {
		res, runErr = dm.Execute(ctx)
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(textfile); err != nil {
			a.logger.WithError(err).Warn("failed to write metrics")
		}
	}

	if runErr != nil {
		return runErr
	}
	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode}
	}
	return nil
}

// executeWithTUI runs the build while a Bubble Tea program renders its
// events. Quitting the UI early cancels the build.
func executeWithTUI(ctx context.Context, a *app, cmd *cobra.Command, dm *dmake.DistributedMake, bus *events.EventBus) (dmake.Result, error) {
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.New(bus),
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
		cancel()
	}()

	res, runErr := dm.Execute(buildCtx)
	bus.Close()

	select {
	case err := <-errChan:
		// Normal TUI exit (user pressed 'q')
		if err != nil {
			a.logger.WithError(err).Error("TUI exit error")
		}
	case <-ctx.Done():
		p.Quit()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()

		select {
		case err := <-errChan:
			if err != nil {
				a.logger.WithError(err).Error("TUI exit error")
			}
		case <-shutdownCtx.Done():
			a.logger.Warn("Shutdown timeout exceeded, forcing exit")
		}
	}

	return res, runErr
}
