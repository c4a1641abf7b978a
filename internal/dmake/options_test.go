package dmake

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/dmake/internal/backend"
)

func ptr[T any](v T) *T { return &v }

func TestBindFlags_Parse(t *testing.T) {
	fs := BindFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))
	require.NoError(t, fs.Parse([]string{"-r", "-j", "8", "-c", "--scheduler", "slurm"}))

	args, err := ArgsFromFlags(fs)
	require.NoError(t, err)
	assert.Equal(t, true, *args.Run)
	assert.Equal(t, 8, *args.Jobs)
	assert.Equal(t, true, *args.NoCleanup)
	assert.Equal(t, "slurm", *args.Scheduler)
}

func TestBindFlags_Defaults(t *testing.T) {
	fs := BindFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))
	require.NoError(t, fs.Parse(nil))

	args, err := ArgsFromFlags(fs)
	require.NoError(t, err)
	assert.False(t, *args.Run)
	assert.Equal(t, 1, *args.Jobs)
	assert.False(t, *args.NoCleanup)
	assert.Equal(t, backend.NameNone, *args.Scheduler)
}

func TestArgsFromFlags_UnregisteredStayNil(t *testing.T) {
	fs := pflag.NewFlagSet("partial", pflag.ContinueOnError)
	fs.Int(FlagJobs, 3, "")
	fs.Bool("unrelated", true, "")
	require.NoError(t, fs.Parse(nil))

	args, err := ArgsFromFlags(fs)
	require.NoError(t, err)
	assert.Nil(t, args.Run)
	assert.Nil(t, args.NoCleanup)
	assert.Nil(t, args.Scheduler)
	assert.Equal(t, 3, *args.Jobs)
}

func TestArgsFromFlags_WrongType(t *testing.T) {
	fs := pflag.NewFlagSet("odd", pflag.ContinueOnError)
	fs.String(FlagJobs, "many", "")

	_, err := ArgsFromFlags(fs)
	assert.Error(t, err)
}

func TestApplyArgs(t *testing.T) {
	d := New(Options{Jobs: 2, KeepGoing: true})

	require.NoError(t, d.ApplyArgs(Args{Run: ptr(true), Jobs: ptr(6), Scheduler: ptr("slurm")}))

	opts := d.Options()
	assert.True(t, opts.Run)
	assert.Equal(t, 6, opts.Jobs)
	assert.True(t, opts.KeepGoing, "fields absent from Args keep their value")
	assert.False(t, opts.NoCleanup)
	assert.Equal(t, backend.NameSlurm, d.Graph().Scheduler().Name())
}

func TestApplyArgs_Empty(t *testing.T) {
	d := New(DefaultOptions())
	require.NoError(t, d.ApplyArgs(Args{}))
	assert.Equal(t, DefaultOptions(), d.Options())
	assert.Equal(t, backend.NameNone, d.Graph().Scheduler().Name())
}

func TestApplyArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args Args
	}{
		{name: "unknown scheduler", args: Args{Run: ptr(true), Scheduler: ptr("pbs")}},
		{name: "zero jobs", args: Args{Run: ptr(true), Jobs: ptr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(DefaultOptions())
			require.Error(t, d.ApplyArgs(tt.args))
			// Nothing applied
			assert.Equal(t, DefaultOptions(), d.Options())
			assert.Equal(t, backend.NameNone, d.Graph().Scheduler().Name())
		})
	}
}

func TestNewFromArgs(t *testing.T) {
	d, err := NewFromArgs(DefaultOptions(), Args{NoCleanup: ptr(true)})
	require.NoError(t, err)
	assert.True(t, d.Options().NoCleanup)

	_, err = NewFromArgs(DefaultOptions(), Args{Scheduler: ptr("nope")})
	assert.ErrorIs(t, err, backend.ErrUnknownScheduler)
}
