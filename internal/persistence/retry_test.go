package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails SaveRun a fixed number of times before delegating.
type flakyStore struct {
	Store
	failures int
	calls    int
}

var errLocked = errors.New("database is locked")

func (s *flakyStore) SaveRun(ctx context.Context, run *Run) error {
	s.calls++
	if s.calls <= s.failures {
		return errLocked
	}
	return s.Store.SaveRun(ctx, run)
}

func fastRetry() RetryConfig {
	return RetryConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  500 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestSaveRunWithRetryRecovers(t *testing.T) {
	ctx := context.Background()
	mem, err := NewMemoryStore(ctx)
	require.NoError(t, err)
	defer mem.Close()

	store := &flakyStore{Store: mem, failures: 2}
	run := sampleRun("run-retry", time.Now())

	require.NoError(t, SaveRunWithRetry(ctx, store, run, fastRetry()))
	assert.Equal(t, 3, store.calls)

	got, err := mem.GetRun(ctx, "run-retry")
	require.NoError(t, err)
	assert.Equal(t, run.Command, got.Command)
}

func TestSaveRunWithRetryGivesUp(t *testing.T) {
	ctx := context.Background()
	mem, err := NewMemoryStore(ctx)
	require.NoError(t, err)
	defer mem.Close()

	store := &flakyStore{Store: mem, failures: 1 << 30}
	err = SaveRunWithRetry(ctx, store, sampleRun("run-stuck", time.Now()), fastRetry())
	assert.ErrorIs(t, err, errLocked)
	assert.Greater(t, store.calls, 1)
}

func TestSaveRunWithRetryCancelled(t *testing.T) {
	mem, err := NewMemoryStore(context.Background())
	require.NoError(t, err)
	defer mem.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &flakyStore{Store: mem}
	err = SaveRunWithRetry(ctx, store, sampleRun("run-cancelled", time.Now()), fastRetry())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.calls)
}
