package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Inbound and outbound event names
const (
	EventEnd              = "end"
	EventDisconnect       = "disconnect"
	EventResize           = "resize"
	EventAccessoryControl = "accessory-control"
	EventStdout           = "stdout"
	EventAccessoriesData  = "accessories-data"
)

// ErrClosed is returned when emitting on a session that has been torn down.
var ErrClosed = errors.New("session closed")

// Message is a single named event frame exchanged with the client.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Transport carries JSON frames to and from one client.
// *websocket.Conn from gorilla/websocket satisfies it.
type Transport interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Size is a terminal size in character cells.
type Size struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// DefaultSize is used when the client does not report its terminal size.
var DefaultSize = Size{Cols: 80, Rows: 24}

// ParseSize builds a Size from query string values, falling back to
// DefaultSize for anything missing or out of range.
func ParseSize(cols, rows string) Size {
	size := DefaultSize
	if c, err := strconv.ParseUint(cols, 10, 16); err == nil && c > 0 {
		size.Cols = uint16(c)
	}
	if r, err := strconv.ParseUint(rows, 10, 16); err == nil && r > 0 {
		size.Rows = uint16(r)
	}
	return size
}

// Handler receives the raw payload of an inbound event.
// Handlers run on the session's read goroutine and must not block.
type Handler func(data json.RawMessage)

// Binder is a controller that can be attached to a session.
// Bind registers the controller's listeners and starts its work; the
// returned teardown releases everything it acquired.
type Binder interface {
	Bind(s *Session) (teardown func())
}

// Session is one live client connection and the controllers bound to it.
type Session struct {
	id        string
	transport Transport
	size      Size
	logger    zerolog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	handlers  map[string]map[uint64]Handler
	nextID    uint64
	teardowns []func()
	closed    bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New wraps transport in a session with the given initial terminal size.
func New(transport Transport, size Size) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		transport: transport,
		size:      size,
		logger:    log.With().Str("session", id).Logger(),
		handlers:  make(map[string]map[uint64]Handler),
		done:      make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Size returns the terminal size reported when the session was opened.
func (s *Session) Size() Size {
	return s.size
}

// Logger returns a logger tagged with the session id.
func (s *Session) Logger() *zerolog.Logger {
	return &s.logger
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Emit sends a named event to the client.
func (s *Session) Emit(event string, payload any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.transport.WriteJSON(Message{Event: event, Data: data})
}

// On registers h for inbound events named event. The returned function
// removes the registration and may be called any number of times.
func (s *Session) On(event string, h Handler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	s.nextID++
	id := s.nextID
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[uint64]Handler)
	}
	s.handlers[event][id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[event], id)
	}
}

// Attach binds b to the session. Its teardown runs exactly once, when the
// session closes, or immediately if the session is already closed.
func (s *Session) Attach(b Binder) {
	teardown := b.Bind(s)
	if teardown == nil {
		return
	}
	once := sync.OnceFunc(teardown)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		once()
		return
	}
	s.teardowns = append(s.teardowns, once)
	s.mu.Unlock()
}

// Serve reads inbound frames and dispatches them until the client
// disconnects, sends an end event, or ctx is cancelled. The session is
// closed when Serve returns.
func (s *Session) Serve(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		var msg Message
		if err := s.transport.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug().Err(err).Msg("Client disconnected")
			}
			_ = s.Close()
			return
		}

		switch msg.Event {
		case EventEnd, EventDisconnect:
			s.logger.Debug().Str("event", msg.Event).Msg("Client ended session")
			_ = s.Close()
			return
		default:
			s.dispatch(msg)
		}
	}
}

// End closes the session from inside a controller, for failures that
// should take every bound controller down with it. The built-in log and
// accessory controllers report their own failures as events and leave
// the session open, so End is the hook for controllers whose failure is
// fatal to the whole session. It must not be called from a goroutine that
// a teardown waits on; use go s.End(err) there.
func (s *Session) End(reason error) {
	s.logger.Warn().Err(reason).Msg("Session ended by controller")
	_ = s.Close()
}

// Close tears the session down: listeners are detached, the transport is
// closed and every attached controller's teardown runs. Safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		teardowns := s.teardowns
		s.teardowns = nil
		s.handlers = make(map[string]map[uint64]Handler)
		s.mu.Unlock()

		close(s.done)
		s.closeErr = s.transport.Close()

		for _, teardown := range teardowns {
			teardown()
		}
	})
	return s.closeErr
}

func (s *Session) dispatch(msg Message) {
	s.mu.Lock()
	registered := s.handlers[msg.Event]
	handlers := make([]Handler, 0, len(registered))
	for _, h := range registered {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	if len(handlers) == 0 {
		s.logger.Debug().Str("event", msg.Event).Msg("No handler for event")
		return
	}

	for _, h := range handlers {
		h(msg.Data)
	}
}
