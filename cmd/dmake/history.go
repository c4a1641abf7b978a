package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/dmake/internal/persistence"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd.Context(), a.cfg.History.Path)
			if err != nil {
				return err
			}

			runs := []*persistence.Run{}
			if store != nil {
				defer store.Close()
				runs, err = store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tSCHEDULER\tMODE\tTARGETS\tEXIT")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					run.Duration().Round(time.Millisecond),
					run.Scheduler,
					runMode(run),
					len(run.Targets),
					exitStatus(run),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	cmd.AddCommand(newHistoryShowCmd(a))

	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd.Context(), a.cfg.History.Path)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("run %s: %w", args[0], persistence.ErrRunNotFound)
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Command:   %s\n", run.Command)
			fmt.Fprintf(out, "Makefile:  %s\n", run.Makefile)
			fmt.Fprintf(out, "Scheduler: %s\n", run.Scheduler)
			fmt.Fprintf(out, "Mode:      %s\n", runMode(run))
			fmt.Fprintf(out, "Jobs:      %d\n", run.Jobs)
			fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Duration:  %s\n", run.Duration().Round(time.Millisecond))
			fmt.Fprintf(out, "Exit:      %s\n", exitStatus(run))
			if len(run.Targets) > 0 {
				fmt.Fprintf(out, "Targets:   %s\n", strings.Join(run.Targets, " "))
			}
			return nil
		},
	}
}

// openHistory opens an existing history database. It returns a nil store
// when no run was ever recorded, so reading history never creates one.
func openHistory(ctx context.Context, path string) (*persistence.SQLiteStore, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	store, err := persistence.NewSQLiteStore(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}

func runMode(run *persistence.Run) string {
	if run.DryRun {
		return "dry-run"
	}
	return "run"
}

func exitStatus(run *persistence.Run) string {
	if run.Error != "" {
		return "error: " + run.Error
	}
	return fmt.Sprintf("%d", run.ExitCode)
}
