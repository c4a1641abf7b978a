// Package dmake registers build rules, writes them to a transient Makefile
// and runs make on it. Dependency ordering, parallelism and failure handling
// are make's job; recipe dispatch to a cluster is the scheduler command's.
package dmake

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aristath/dmake/internal/backend"
	"github.com/aristath/dmake/internal/events"
	"github.com/aristath/dmake/internal/logging"
	"github.com/aristath/dmake/internal/metrics"
	"github.com/aristath/dmake/internal/persistence"
	"github.com/aristath/dmake/internal/rules"
)

// DefaultMakeCommand is the build tool invoked by Execute.
const DefaultMakeCommand = "make"

// DistributedMake owns one rule graph and runs it through make once.
// It is not safe for concurrent use.
type DistributedMake struct {
	opts  Options
	graph *rules.Graph

	makeCommand string
	shell       string // Runs the make command line
	recipeShell string // SHELL inside the Makefile
	tempDir     string

	out    io.Writer // Command line echo
	stdout io.Writer // make's stdout
	stderr io.Writer // make's stderr

	logger   *logrus.Logger
	bus      *events.EventBus
	pm       *backend.ProcessManager
	recorder *metrics.Recorder
	history  persistence.Store
}

// Option configures a DistributedMake.
type Option func(*DistributedMake)

// WithScheduler selects the recipe dispatch backend.
func WithScheduler(s backend.Scheduler) Option {
	return func(d *DistributedMake) { d.graph.SetScheduler(s) }
}

// WithMakeCommand overrides the make binary, e.g. "gmake".
func WithMakeCommand(cmd string) Option {
	return func(d *DistributedMake) {
		if cmd != "" {
			d.makeCommand = cmd
		}
	}
}

// WithShell sets the shell that interprets the make command line.
func WithShell(shell string) Option {
	return func(d *DistributedMake) {
		if shell != "" {
			d.shell = shell
		}
	}
}

// WithRecipeShell sets the SHELL written into the Makefile.
func WithRecipeShell(shell string) Option {
	return func(d *DistributedMake) {
		if shell != "" {
			d.recipeShell = shell
		}
	}
}

// WithTempDir places transient Makefiles in dir instead of os.TempDir().
func WithTempDir(dir string) Option {
	return func(d *DistributedMake) { d.tempDir = dir }
}

// WithOutput sets where the command line is echoed.
func WithOutput(w io.Writer) Option {
	return func(d *DistributedMake) { d.out = w }
}

// WithStdout sets where make's standard output goes.
func WithStdout(w io.Writer) Option {
	return func(d *DistributedMake) { d.stdout = w }
}

// WithStderr sets where make's standard error goes.
func WithStderr(w io.Writer) Option {
	return func(d *DistributedMake) { d.stderr = w }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(d *DistributedMake) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithEventBus publishes build lifecycle and output events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(d *DistributedMake) { d.bus = bus }
}

// WithProcessManager tracks the make process so it can be killed on shutdown.
func WithProcessManager(pm *backend.ProcessManager) Option {
	return func(d *DistributedMake) { d.pm = pm }
}

// WithRecorder records every execution in r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(d *DistributedMake) { d.recorder = r }
}

// WithHistory saves every execution to store.
func WithHistory(store persistence.Store) Option {
	return func(d *DistributedMake) { d.history = store }
}

// New creates a DistributedMake with an empty graph.
func New(opts Options, options ...Option) *DistributedMake {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}

	d := &DistributedMake{
		opts:        opts,
		graph:       rules.NewGraph(backend.None{}),
		makeCommand: DefaultMakeCommand,
		shell:       backend.DefaultShell,
		recipeShell: rules.DefaultShell,
		out:         os.Stdout,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      logging.NewNop(),
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// NewFromArgs creates a DistributedMake and applies externally parsed args.
func NewFromArgs(opts Options, args Args, options ...Option) (*DistributedMake, error) {
	d := New(opts, options...)
	if err := d.ApplyArgs(args); err != nil {
		return nil, err
	}
	return d, nil
}

// ApplyArgs copies the fields present in args. An unknown scheduler name is
// an error and leaves every setting unchanged.
func (d *DistributedMake) ApplyArgs(args Args) error {
	var sched backend.Scheduler
	if args.Scheduler != nil {
		s, err := backend.New(backend.Config{Name: *args.Scheduler})
		if err != nil {
			return err
		}
		sched = s
	}

	opts := d.opts
	if err := opts.apply(args); err != nil {
		return err
	}

	d.opts = opts
	if sched != nil {
		d.graph.SetScheduler(sched)
	}
	return nil
}

// Options returns the current options.
func (d *DistributedMake) Options() Options {
	return d.opts
}

// Graph returns the rule graph.
func (d *DistributedMake) Graph() *rules.Graph {
	return d.graph
}

// Add registers a rule; see rules.Graph.Add.
func (d *DistributedMake) Add(target string, deps, recipe []string) error {
	return d.graph.Add(target, deps, recipe)
}

// BuildCommand returns the make invocation for the Makefile at path:
//
//	make [-n] [-k] [-q v] [-t v] [-d v] -j N -f path all
//
// A switch and its value share one element.
func (d *DistributedMake) BuildCommand(path string) []string {
	cmd := []string{d.makeCommand}
	if !d.opts.Run {
		cmd = append(cmd, "-n")
	}
	if d.opts.KeepGoing {
		cmd = append(cmd, "-k")
	}
	if d.opts.Question != "" {
		cmd = append(cmd, "-q "+d.opts.Question)
	}
	if d.opts.Touch != "" {
		cmd = append(cmd, "-t "+d.opts.Touch)
	}
	if d.opts.Debug != "" {
		cmd = append(cmd, "-d "+d.opts.Debug)
	}
	cmd = append(cmd, fmt.Sprintf("-j %d", d.opts.Jobs))
	cmd = append(cmd, "-f "+path)
	cmd = append(cmd, rules.DefaultGoal)
	return cmd
}

// Result describes one Execute call.
type Result struct {
	RunID    string
	ExitCode int    // make's exit status, -1 if make did not run
	Command  string // Shell command line passed to the shell
	Makefile string // Transient Makefile path; gone unless NoCleanup
	Duration time.Duration
}

// Execute writes the graph to a transient Makefile, runs make on it and
// returns make's exit status verbatim. A failing recipe is not an error; err
// is set only when the Makefile could not be written, make could not be
// started or ctx was cancelled. The Makefile is removed on every exit path
// unless NoCleanup is set.
func (d *DistributedMake) Execute(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), ExitCode: -1}
	started := time.Now()

	f, err := os.CreateTemp(d.tempDir, "dmake-*.mk")
	if err != nil {
		return res, fmt.Errorf("creating makefile: %w", err)
	}
	res.Makefile = f.Name()
	if !d.opts.NoCleanup {
		defer os.Remove(res.Makefile)
	}

	log := d.logger.WithFields(logrus.Fields{
		"run_id":   res.RunID,
		"makefile": res.Makefile,
	})

	if err := d.graph.SerializeShell(f, d.recipeShell); err != nil {
		f.Close()
		return res, fmt.Errorf("writing makefile: %w", err)
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("closing makefile: %w", err)
	}
	log.WithField("rules", d.graph.Len()).Debug("makefile written")

	events.PublishIfOpen(d.bus, events.TopicBuild, events.MakefileWrittenEvent{
		ID:        res.RunID,
		Path:      res.Makefile,
		Targets:   d.graph.Targets(),
		Scheduler: d.graph.Scheduler().Name(),
		Timestamp: time.Now(),
	})

	res.Command = strings.Join(d.BuildCommand(res.Makefile), " ")
	fmt.Fprintln(d.out, res.Command)

	events.PublishIfOpen(d.bus, events.TopicBuild, events.BuildStartedEvent{
		ID:        res.RunID,
		Command:   res.Command,
		DryRun:    !d.opts.Run,
		Jobs:      d.opts.Jobs,
		Timestamp: time.Now(),
	})

	stdout, stderr, flush := d.outputWriters(res.RunID)
	code, runErr := backend.Run(ctx, d.pm, d.shell, res.Command, stdout, stderr)
	flush()

	fmt.Fprintln(d.out, res.Command)

	finished := time.Now()
	res.ExitCode = code
	res.Duration = finished.Sub(started)

	log = log.WithFields(logrus.Fields{"exit_code": code, "duration": res.Duration})
	if runErr != nil {
		log.WithError(runErr).Error("make did not complete")
	} else if code != 0 {
		log.Warn("make failed")
	} else {
		log.Debug("make finished")
	}

	d.record(ctx, res, runErr, started, finished)

	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

// outputWriters returns make's stdout/stderr destinations, teeing into the
// event bus when one is configured.
func (d *DistributedMake) outputWriters(runID string) (io.Writer, io.Writer, func()) {
	if d.bus == nil {
		return d.stdout, d.stderr, func() {}
	}

	outLines := events.NewLineWriter(d.bus, runID, events.StreamStdout)
	errLines := events.NewLineWriter(d.bus, runID, events.StreamStderr)
	flush := func() {
		outLines.Flush()
		errLines.Flush()
	}
	return teeWriter(d.stdout, outLines), teeWriter(d.stderr, errLines), flush
}

func teeWriter(w io.Writer, lines io.Writer) io.Writer {
	if w == nil {
		return lines
	}
	return io.MultiWriter(w, lines)
}

// record publishes the outcome to the event bus, metrics and history. History
// failures are logged, never returned: they must not mask make's status.
func (d *DistributedMake) record(ctx context.Context, res Result, runErr error, started, finished time.Time) {
	events.PublishIfOpen(d.bus, events.TopicBuild, events.BuildFinishedEvent{
		ID:        res.RunID,
		ExitCode:  res.ExitCode,
		Err:       runErr,
		Duration:  res.Duration,
		Timestamp: finished,
	})

	scheduler := d.graph.Scheduler().Name()

	if d.recorder != nil {
		d.recorder.Observe(metrics.Observation{
			Scheduler: scheduler,
			DryRun:    !d.opts.Run,
			Rules:     d.graph.Len(),
			ExitCode:  res.ExitCode,
			Err:       runErr,
			Duration:  res.Duration,
			Finished:  finished,
		})
	}

	if d.history != nil {
		run := &persistence.Run{
			ID:         res.RunID,
			Command:    res.Command,
			Makefile:   res.Makefile,
			Scheduler:  scheduler,
			DryRun:     !d.opts.Run,
			Jobs:       d.opts.Jobs,
			Targets:    d.graph.Targets(),
			ExitCode:   res.ExitCode,
			StartedAt:  started,
			FinishedAt: finished,
		}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		// The build context may already be cancelled; history is still written
		if err := persistence.SaveRunWithRetry(context.WithoutCancel(ctx), d.history, run, persistence.DefaultRetryConfig()); err != nil {
			d.logger.WithError(err).WithField("run_id", res.RunID).Warn("failed to save run history")
		}
	}
}
