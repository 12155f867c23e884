package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport moves raw frames across the boundary. Implementations deliver
// at most once, unordered with respect to other channels.
type Transport interface {
	// Send transmits a frame to the peer side.
	Send(raw []byte) error

	// SetReceiver registers the callback invoked for every inbound frame.
	SetReceiver(fn func(raw []byte))
}

// Endpoint is one side of the bridge. Outbound messages are stamped with
// the current time and this side's origin; inbound messages are validated,
// checked against the origin allow-list and fanned out to listeners in
// registration order.
type Endpoint struct {
	transport Transport
	origin    string
	allowed   map[string]struct{}
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    int

	warnNoAllowList sync.Once
}

type listenerEntry struct {
	id int
	fn func(*Message)
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithOrigin sets the origin stamped on outbound messages.
func WithOrigin(origin string) Option {
	return func(e *Endpoint) { e.origin = origin }
}

// WithAllowedOrigins enables the inbound allow-list. When set, messages
// from any other origin are dropped before listeners run. Production
// deployments must set this; running without it is logged once.
func WithAllowedOrigins(origins ...string) Option {
	return func(e *Endpoint) {
		e.allowed = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			e.allowed[o] = struct{}{}
		}
	}
}

// WithLogger sets the endpoint logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Endpoint) { e.logger = logger }
}

// NewEndpoint wires an endpoint to a transport and starts receiving.
func NewEndpoint(transport Transport, opts ...Option) *Endpoint {
	e := &Endpoint{
		transport: transport,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	transport.SetReceiver(e.receive)
	return e
}

// Send stamps the message with the current time (if absent) and this side's
// origin, then transmits it. Fire-and-forget: a nil error only means the
// transport accepted the frame.
func (e *Endpoint) Send(msg *Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = e.now().UnixMilli()
	}
	if msg.Origin == "" {
		msg.Origin = e.origin
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return e.transport.Send(raw)
}

// AddListener registers a handler for every valid inbound message and
// returns its unsubscribe function. Unsubscribing is idempotent.
func (e *Endpoint) AddListener(fn func(*Message)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// receive validates an inbound frame and fans it out. Malformed frames,
// unrecognized types and disallowed origins are dropped with a diagnostic,
// never thrown; a panicking listener does not prevent the others from
// running.
func (e *Endpoint) receive(raw []byte) {
	msg, err := decode(raw)
	if err != nil {
		e.logger.Warn("dropping malformed bridge message", zap.Error(err))
		return
	}

	if !msg.Type.Known() {
		e.logger.Debug("dropping unrecognized bridge message", zap.String("type", string(msg.Type)))
		return
	}

	if e.allowed != nil {
		if _, ok := e.allowed[msg.Origin]; !ok {
			e.logger.Warn("dropping bridge message from disallowed origin",
				zap.String("origin", msg.Origin),
				zap.String("type", string(msg.Type)),
			)
			return
		}
	} else {
		e.warnNoAllowList.Do(func() {
			e.logger.Warn("bridge endpoint has no origin allow-list; any peer can inject messages")
		})
	}

	e.mu.Lock()
	listeners := make([]listenerEntry, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		e.dispatch(l.fn, msg)
	}
}

func (e *Endpoint) dispatch(fn func(*Message), msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("bridge listener panicked",
				zap.Any("panic", r),
				zap.String("type", string(msg.Type)),
			)
		}
	}()
	fn(msg)
}
