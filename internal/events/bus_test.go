package events

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func assertEmpty(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Errorf("unexpected event %v", ev)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicBuild, 10)
	bus.Publish(TopicBuild, BuildStartedEvent{ID: "run-1", Command: "make -n -j 1 -f x all", Timestamp: time.Now()})

	ev := receive(t, ch)
	assert.Equal(t, "run-1", ev.RunID())
	assert.Equal(t, EventTypeBuildStarted, ev.EventType())
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicBuild, 10)
	ch2 := bus.Subscribe(TopicBuild, 10)

	bus.Publish(TopicBuild, BuildFinishedEvent{ID: "run-2", ExitCode: 0, Duration: time.Second})

	for i, ch := range []<-chan Event{ch1, ch2} {
		ev := receive(t, ch)
		assert.Equal(t, "run-2", ev.RunID(), "subscriber %d", i+1)
	}
}

// Publishing must not block when a subscriber's buffer is full.
func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicOutput, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicOutput, BuildOutputEvent{ID: "run", Line: fmt.Sprint(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	ev := receive(t, ch)
	assert.Equal(t, "0", ev.(BuildOutputEvent).Line)
	assertEmpty(t, ch)
}

func TestClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicBuild, 10)
	all := bus.SubscribeAll(10)

	bus.Close()
	bus.Close() // idempotent

	_, ok := <-ch
	assert.False(t, ok)
	_, ok = <-all
	assert.False(t, ok)

	// Subscribing after close yields a closed channel
	_, ok = <-bus.Subscribe(TopicBuild, 1)
	assert.False(t, ok)
	_, ok = <-bus.SubscribeAll(1)
	assert.False(t, ok)
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	bus.Close()

	assert.NotPanics(t, func() {
		bus.Publish(TopicBuild, BuildStartedEvent{ID: "late"})
	})
}

func TestPublishIfOpen_NilBus(t *testing.T) {
	assert.NotPanics(t, func() {
		PublishIfOpen(nil, TopicBuild, BuildStartedEvent{ID: "nobody"})
	})
}

func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	buildCh := bus.Subscribe(TopicBuild, 10)
	outputCh := bus.Subscribe(TopicOutput, 10)

	bus.Publish(TopicBuild, MakefileWrittenEvent{ID: "r", Path: "/tmp/x.mk"})
	bus.Publish(TopicOutput, BuildOutputEvent{ID: "r", Line: "cp a b"})

	assert.Equal(t, EventTypeMakefileWritten, receive(t, buildCh).EventType())
	assert.Equal(t, EventTypeBuildOutput, receive(t, outputCh).EventType())
	assertEmpty(t, buildCh)
	assertEmpty(t, outputCh)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	all := bus.SubscribeAll(0)

	bus.Publish(TopicBuild, BuildStartedEvent{ID: "r"})
	bus.Publish(TopicOutput, BuildOutputEvent{ID: "r"})

	got := map[string]bool{}
	got[receive(t, all).EventType()] = true
	got[receive(t, all).EventType()] = true
	assert.True(t, got[EventTypeBuildStarted])
	assert.True(t, got[EventTypeBuildOutput])
	assertEmpty(t, all)
}

func TestBuildFinishedEvent_Success(t *testing.T) {
	assert.True(t, BuildFinishedEvent{ExitCode: 0}.Success())
	assert.False(t, BuildFinishedEvent{ExitCode: 2}.Success())
	assert.False(t, BuildFinishedEvent{ExitCode: 0, Err: errors.New("boom")}.Success())
}

func TestLineWriter(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()
	ch := bus.Subscribe(TopicOutput, 10)

	w := NewLineWriter(bus, "run-9", StreamStderr)
	n, err := w.Write([]byte("first line\nsecond "))
	require.NoError(t, err)
	assert.Equal(t, 18, n)

	ev := receive(t, ch).(BuildOutputEvent)
	assert.Equal(t, "first line", ev.Line)
	assert.Equal(t, StreamStderr, ev.Stream)
	assert.Equal(t, "run-9", ev.ID)
	assertEmpty(t, ch)

	_, err = w.Write([]byte("half\r\nthird"))
	require.NoError(t, err)
	assert.Equal(t, "second half", receive(t, ch).(BuildOutputEvent).Line)

	w.Flush()
	assert.Equal(t, "third", receive(t, ch).(BuildOutputEvent).Line)

	w.Flush()
	assertEmpty(t, ch)
}
