package events

import (
	"bytes"
	"sync"
	"time"
)

// LineWriter is an io.Writer that publishes every complete line written to
// it as a BuildOutputEvent on TopicOutput. Call Flush after the producer is
// done to emit a trailing partial line.
type LineWriter struct {
	mu     sync.Mutex
	bus    *EventBus
	runID  string
	stream string
	buf    bytes.Buffer
}

// NewLineWriter creates a LineWriter for one run and stream.
func NewLineWriter(bus *EventBus, runID, stream string) *LineWriter {
	return &LineWriter{bus: bus, runID: runID, stream: stream}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line; keep it for the next Write
			w.buf.Reset()
			w.buf.Write(line)
			break
		}
		w.publish(string(bytes.TrimRight(line, "\r\n")))
	}
	return len(p), nil
}

// Flush publishes any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return
	}
	w.publish(w.buf.String())
	w.buf.Reset()
}

func (w *LineWriter) publish(line string) {
	PublishIfOpen(w.bus, TopicOutput, BuildOutputEvent{
		ID:        w.runID,
		Stream:    w.stream,
		Line:      line,
		Timestamp: time.Now(),
	})
}
