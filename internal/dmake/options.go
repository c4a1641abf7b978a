package dmake

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/aristath/dmake/internal/backend"
)

// Options mirror the make switches dmake controls. The zero value is not a
// valid configuration because make needs at least one job; start from
// DefaultOptions.
type Options struct {
	Run       bool   // Execute recipes; false passes -n
	KeepGoing bool   // -k
	Jobs      int    // -j
	NoCleanup bool   // Keep the transient Makefile after Execute
	Question  string // -q <value>, omitted when empty
	Touch     string // -t <value>, omitted when empty
	Debug     string // -d <value>, omitted when empty
}

// DefaultOptions is a single-job dry run that cleans up after itself.
func DefaultOptions() Options {
	return Options{Jobs: 1}
}

// Args carries values parsed by an external argument parser. A nil field
// was not provided and leaves the current setting alone.
type Args struct {
	Run       *bool
	NoCleanup *bool
	Jobs      *int
	Scheduler *string
}

// Flag names registered by BindFlags.
const (
	FlagRun       = "run"
	FlagJobs      = "jobs"
	FlagNoCleanup = "no-cleanup"
	FlagScheduler = "scheduler"
)

// BindFlags registers the standard dmake switches on fs: -r/--run,
// -j/--jobs, -c/--no-cleanup and --scheduler. Programs embedding dmake call
// it on their own flag set and pass ArgsFromFlags(fs) to ApplyArgs.
func BindFlags(fs *pflag.FlagSet) *pflag.FlagSet {
	fs.BoolP(FlagRun, "r", false, "execute recipes (default is a dry run)")
	fs.IntP(FlagJobs, "j", 1, "number of recipes make may run in parallel")
	fs.BoolP(FlagNoCleanup, "c", false, "keep the generated Makefile")
	fs.String(FlagScheduler, backend.NameNone, fmt.Sprintf("recipe dispatch backend %v", backend.Names()))
	return fs
}

// ArgsFromFlags reads every dmake flag registered on fs. Flags that were
// never registered stay nil; registered flags are always present, holding
// either the parsed value or the flag default.
func ArgsFromFlags(fs *pflag.FlagSet) (Args, error) {
	var args Args

	if fs.Lookup(FlagRun) != nil {
		v, err := fs.GetBool(FlagRun)
		if err != nil {
			return Args{}, err
		}
		args.Run = &v
	}
	if fs.Lookup(FlagNoCleanup) != nil {
		v, err := fs.GetBool(FlagNoCleanup)
		if err != nil {
			return Args{}, err
		}
		args.NoCleanup = &v
	}
	if fs.Lookup(FlagJobs) != nil {
		v, err := fs.GetInt(FlagJobs)
		if err != nil {
			return Args{}, err
		}
		args.Jobs = &v
	}
	if fs.Lookup(FlagScheduler) != nil {
		v, err := fs.GetString(FlagScheduler)
		if err != nil {
			return Args{}, err
		}
		args.Scheduler = &v
	}

	return args, nil
}

// apply copies the option fields present in a onto o.
func (o *Options) apply(a Args) error {
	if a.Jobs != nil && *a.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", *a.Jobs)
	}
	if a.Run != nil {
		o.Run = *a.Run
	}
	if a.NoCleanup != nil {
		o.NoCleanup = *a.NoCleanup
	}
	if a.Jobs != nil {
		o.Jobs = *a.Jobs
	}
	return nil
}
