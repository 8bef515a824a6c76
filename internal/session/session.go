package session

import (
	"sync"

	"github.com/rs/zerolog"

	internalroutes "github.com/plantops/edgeagent-go/internal/routes"
	"github.com/plantops/edgeagent-go/pkg/routes"
	"github.com/plantops/edgeagent-go/pkg/session"
)

// DefaultQoS is used for subscriptions and publishes when the config does
// not specify one.
const DefaultQoS byte = 1

// Config carries the session's construction-time options. Per-handler
// configuration is passed to handlers explicitly; the session itself holds
// no handler state beyond the subscription table.
type Config struct {
	// DefaultQoS applies to Subscribe and Publish when no explicit level
	// is given. Zero means DefaultQoS (1).
	DefaultQoS byte

	// DefaultHandler receives messages whose topic matches no filter, or
	// matches a filter registered without a handler. Optional.
	DefaultHandler routes.MessageHandler

	// OnConnect is invoked after every successful connect, once the
	// subscription replay has completed. Optional.
	OnConnect func()

	// OnDisconnect is invoked on every disconnect. A nil error means the
	// disconnect was a clean, explicit Stop; non-nil means the transport
	// lost the connection and is reconnecting. Optional.
	OnDisconnect func(err error)

	// Logger is the session's logger. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// MQTTSession implements session.Session over a session.Transport. It
// owns the transport handle and the subscription table, keeps Start and
// Stop idempotent, replays the table on every connect event, and isolates
// panics from user-supplied handlers so one misbehaving handler cannot
// kill the delivery goroutine.
type MQTTSession struct {
	transport  session.Transport
	table      *internalroutes.Table
	defaultQoS byte
	log        zerolog.Logger

	// Callbacks are fixed at construction time.
	defaultHandler routes.MessageHandler
	onConnect      func()
	onDisconnect   func(err error)

	mu    sync.Mutex
	state session.State
}

// New creates a session over transport and binds the transport's event
// callbacks. The session starts in the Stopped state.
func New(transport session.Transport, cfg Config) *MQTTSession {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	qos := cfg.DefaultQoS
	if qos == 0 {
		qos = DefaultQoS
	}

	s := &MQTTSession{
		transport:      transport,
		table:          internalroutes.NewTable(),
		defaultQoS:     qos,
		log:            log,
		defaultHandler: cfg.DefaultHandler,
		onConnect:      cfg.OnConnect,
		onDisconnect:   cfg.OnDisconnect,
		state:          session.Stopped,
	}

	transport.Bind(session.Events{
		OnConnect:        s.handleConnect,
		OnConnectionLost: s.handleConnectionLost,
		OnMessage:        s.handleMessage,
	})
	return s
}

// Subscribe registers filter with handler at the session's default QoS.
func (s *MQTTSession) Subscribe(filter string, handler routes.MessageHandler) error {
	return s.SubscribeQoS(filter, handler, s.defaultQoS)
}

// SubscribeQoS registers filter with handler at the given QoS. The table
// update always succeeds for a valid filter; when the session is running
// a live subscribe is also issued, and its failure is logged but does not
// roll back the entry, which will be retried on the next reconnect replay.
func (s *MQTTSession) SubscribeQoS(filter string, handler routes.MessageHandler, qos byte) error {
	if err := s.table.Add(filter, handler, qos); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == session.Running {
		s.log.Info().Str("filter", filter).Uint8("qos", qos).Msg("subscribing")
		if err := s.transport.Subscribe(filter, qos); err != nil {
			s.log.Error().Err(err).Str("filter", filter).Msg("live subscribe failed, will retry on reconnect")
		}
	}
	return nil
}

// Unsubscribe removes filter from the table. When running, a live
// unsubscribe is issued best-effort.
func (s *MQTTSession) Unsubscribe(filter string) {
	s.table.Remove(filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == session.Running {
		if err := s.transport.Unsubscribe(filter); err != nil {
			s.log.Error().Err(err).Str("filter", filter).Msg("live unsubscribe failed")
		} else {
			s.log.Info().Str("filter", filter).Msg("unsubscribed")
		}
	}
}

// ClearSubscriptions removes all filters, best-effort unsubscribing each
// from the transport when running.
func (s *MQTTSession) ClearSubscriptions() {
	entries := s.table.Entries()
	s.table.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != session.Running {
		return
	}
	for _, e := range entries {
		if err := s.transport.Unsubscribe(e.Filter); err != nil {
			s.log.Error().Err(err).Str("filter", e.Filter).Msg("live unsubscribe failed")
		}
	}
}

// Start connects the transport and marks the session running. A failed
// initial connect is logged, not returned: the transport's own retry
// policy is expected to establish the connection in the background.
// Calling Start on a starting or running session is a no-op.
func (s *MQTTSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != session.Stopped {
		return nil
	}
	s.state = session.Starting

	s.log.Info().Msg("connecting")
	if err := s.transport.Connect(); err != nil {
		s.log.Error().Err(err).Msg("initial connect failed, transport will retry")
	}
	s.state = session.Running
	return nil
}

// Stop halts the delivery loop and disconnects cleanly. Calling Stop on a
// stopped session is a no-op.
func (s *MQTTSession) Stop() {
	s.mu.Lock()
	if s.state == session.Stopped {
		s.mu.Unlock()
		return
	}
	s.state = session.Stopped
	s.mu.Unlock()

	// Disconnect blocks until the delivery loop has halted; it must not
	// run under s.mu or an in-flight callback taking the lock deadlocks.
	s.transport.Disconnect()
	s.log.Info().Msg("disconnected")
	s.notifyDisconnect(nil)
}

// Publish sends payload to topic at the default QoS, unretained.
func (s *MQTTSession) Publish(topic string, payload []byte) error {
	return s.PublishWith(topic, payload, s.defaultQoS, false)
}

// PublishWith is a thin pass-through to the transport. It carries no
// retry logic of its own; that is delegated to the transport's QoS.
func (s *MQTTSession) PublishWith(topic string, payload []byte, qos byte, retain bool) error {
	s.log.Debug().Str("topic", topic).Uint8("qos", qos).Bool("retain", retain).Msg("publishing")
	return s.transport.Publish(topic, payload, qos, retain)
}

// State returns the session's lifecycle state.
func (s *MQTTSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscriptions returns a snapshot of the subscription table.
func (s *MQTTSession) Subscriptions() []routes.Entry {
	return s.table.Entries()
}

// handleConnect runs on every successful connect, including reconnects.
// It replays every table entry as a fresh subscribe call; one filter's
// failure does not block the rest.
func (s *MQTTSession) handleConnect() {
	s.log.Info().Msg("connected")
	for _, e := range s.table.Entries() {
		s.log.Info().Str("filter", e.Filter).Uint8("qos", e.QoS).Msg("subscribing")
		if err := s.transport.Subscribe(e.Filter, e.QoS); err != nil {
			s.log.Error().Err(err).Str("filter", e.Filter).Msg("replay subscribe failed")
		}
	}
	if s.onConnect != nil {
		s.isolate("connect callback", func() { s.onConnect() })
	}
}

// handleConnectionLost runs when an established connection drops
// unexpectedly. The session stays Running; the transport reconnects on
// its own schedule and handleConnect will replay subscriptions.
func (s *MQTTSession) handleConnectionLost(err error) {
	s.log.Warn().Err(err).Msg("connection lost, transport reconnecting")
	s.notifyDisconnect(err)
}

// handleMessage resolves the most specific handler for the topic and
// invokes it, falling back to the default handler when no filter matched
// or the matching filter carries no handler.
func (s *MQTTSession) handleMessage(topic string, payload []byte) {
	s.log.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("message received")

	handler, _ := s.table.Resolve(topic)
	if handler == nil {
		handler = s.defaultHandler
	}
	if handler == nil {
		s.log.Debug().Str("topic", topic).Msg("no handler for topic")
		return
	}
	s.isolate("message handler", func() { handler(topic, payload) })
}

func (s *MQTTSession) notifyDisconnect(err error) {
	if s.onDisconnect != nil {
		s.isolate("disconnect callback", func() { s.onDisconnect(err) })
	}
}

// isolate runs fn, converting a panic into a log entry so user-supplied
// code cannot kill the transport's delivery goroutine.
func (s *MQTTSession) isolate(what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("callback", what).Msg("panic in user callback")
		}
	}()
	fn()
}

// Verify that MQTTSession implements the session.Session interface at compile time
var _ session.Session = (*MQTTSession)(nil)
