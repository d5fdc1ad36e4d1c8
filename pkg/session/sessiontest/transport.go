// Package sessiontest provides an in-memory session.Transport for tests.
package sessiontest

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/urmzd/hbconsole/pkg/session"
)

var errClosed = errors.New("transport closed")

// Transport is an in-memory session.Transport. Frames pushed with Send
// are read by the session; frames the session writes are recorded.
type Transport struct {
	inbound chan session.Message

	mu      sync.Mutex
	written []session.Message
	closes  int

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an open transport.
func New() *Transport {
	return &Transport{
		inbound: make(chan session.Message, 64),
		closed:  make(chan struct{}),
	}
}

// Send queues an inbound event as if the client had sent it.
func (t *Transport) Send(tb testing.TB, event string, payload any) {
	tb.Helper()
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			tb.Fatalf("marshal %s payload: %v", event, err)
		}
		data = b
	}
	t.inbound <- session.Message{Event: event, Data: data}
}

// Disconnect simulates the client dropping the connection.
func (t *Transport) Disconnect() {
	t.closeOnce.Do(func() { close(t.closed) })
}

// ReadJSON implements session.Transport.
func (t *Transport) ReadJSON(v any) error {
	select {
	case <-t.closed:
		return io.EOF
	case msg := <-t.inbound:
		b, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, v)
	}
}

// WriteJSON implements session.Transport.
func (t *Transport) WriteJSON(v any) error {
	select {
	case <-t.closed:
		return errClosed
	default:
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg session.Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return err
	}

	t.mu.Lock()
	t.written = append(t.written, msg)
	t.mu.Unlock()
	return nil
}

// Close implements session.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closes++
	t.mu.Unlock()
	t.Disconnect()
	return nil
}

// Closes reports how many times Close was called.
func (t *Transport) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

// Messages returns the written frames for event, in write order.
func (t *Transport) Messages(event string) []session.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []session.Message
	for _, msg := range t.written {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

// Stdout concatenates every stdout payload written so far.
func (t *Transport) Stdout() string {
	var out string
	for _, msg := range t.Messages(session.EventStdout) {
		var chunk string
		if err := json.Unmarshal(msg.Data, &chunk); err == nil {
			out += chunk
		}
	}
	return out
}

// WaitFor blocks until at least n frames for event were written and
// returns them. It fails the test after timeout.
func (t *Transport) WaitFor(tb testing.TB, event string, n int, timeout time.Duration) []session.Message {
	tb.Helper()
	deadline := time.Now().Add(timeout)
	for {
		msgs := t.Messages(event)
		if len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			tb.Fatalf("timed out waiting for %d %q frames, got %d", n, event, len(msgs))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
