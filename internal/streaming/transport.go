package streaming

import (
	"context"
	"encoding/json"
	"sync"
)

// ModelTransport is one bidirectional stream to the speech model. Send and
// Receive may be called from different goroutines, but callers must
// serialize Sends themselves: the wire protocol is order-sensitive and the
// underlying streams allow one writer at a time. Receive returns io.EOF
// when the model closes its output side.
type ModelTransport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// TransportFactory opens a fresh model stream for one session.
type TransportFactory func(ctx context.Context) (ModelTransport, error)

// sessionWriter enforces the single-writer discipline on a transport. The
// input relay and the output dispatcher both send through it; the mutex
// keeps their events whole and ordered on the wire.
type sessionWriter struct {
	mu        sync.Mutex
	transport ModelTransport
}

func newSessionWriter(t ModelTransport) *sessionWriter {
	return &sessionWriter{transport: t}
}

// sendEvent marshals and sends one envelope.
func (w *sessionWriter) sendEvent(ctx context.Context, ev Envelope) error {
	return w.sendEvents(ctx, ev)
}

// sendEvents sends a sequence of envelopes under one lock acquisition, so
// multi-event sequences (the tool-result block) cannot interleave with
// audio-input events.
func (w *sessionWriter) sendEvents(ctx context.Context, evs ...Envelope) error {
	payloads := make([][]byte, 0, len(evs))
	for _, ev := range evs {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, payload := range payloads {
		if err := w.transport.Send(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}
