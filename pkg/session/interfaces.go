package session

import (
	"github.com/plantops/edgeagent-go/pkg/routes"
)

// Events are the callbacks a Transport delivers from its background
// network loop. The transport guarantees serial delivery: no two
// callbacks run concurrently.
type Events struct {
	// OnConnect fires on every successful connect, including automatic
	// reconnects.
	OnConnect func()

	// OnConnectionLost fires when an established connection drops
	// unexpectedly. The transport's own reconnect policy is already in
	// progress when this fires; it is informational.
	OnConnectionLost func(err error)

	// OnMessage delivers one inbound message. Payload bytes are opaque.
	OnMessage func(topic string, payload []byte)
}

// Transport is the black-box publish/subscribe transport consumed by the
// session. Implementations own connection establishment, keepalive,
// reconnection backoff, and QoS delivery; the session only sequences
// calls against this surface.
//
// Bind must be called before Connect.
type Transport interface {
	// Bind registers the event callbacks.
	Bind(Events)

	// Connect initiates the connection and starts the background network
	// loop. A failed initial attempt is not fatal when the transport
	// retries internally; implementations return nil in that case and
	// surface progress through Events.
	Connect() error

	// Disconnect cleanly closes the connection and halts the background
	// loop. It blocks until the loop has stopped.
	Disconnect()

	// Subscribe registers a topic filter at the given QoS.
	Subscribe(filter string, qos byte) error

	// Unsubscribe removes a topic filter registration.
	Unsubscribe(filter string) error

	// Publish sends payload to topic.
	Publish(topic string, payload []byte, qos byte, retain bool) error
}

// State is the session's lifecycle state. An unexpected transport
// disconnect does not change the state: the session stays Running while
// the transport reconnects, and only an explicit Stop returns it to
// Stopped.
type State int

const (
	// Stopped means the session is idle; no delivery loop is active.
	Stopped State = iota

	// Starting means Start is in progress: the initial connect attempt
	// has been issued but the session is not yet marked running.
	Starting

	// Running means the delivery loop is active and the subscription
	// table has been, or will be on the next connect event, replayed.
	Running
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Session is the public surface of the connection session: subscription
// management, lifecycle, and publishing.
type Session interface {
	// Subscribe registers filter with handler at the session's default
	// QoS. The handler may be nil to route matching messages to the
	// session's default handler. The table update always succeeds for a
	// valid filter; the live transport subscribe happens opportunistically
	// when running and unconditionally on the next connect via replay.
	Subscribe(filter string, handler routes.MessageHandler) error

	// SubscribeQoS is Subscribe with an explicit QoS level.
	SubscribeQoS(filter string, handler routes.MessageHandler, qos byte) error

	// Unsubscribe removes filter from the table and, when running, issues
	// a best-effort live unsubscribe.
	Unsubscribe(filter string)

	// ClearSubscriptions removes all filters, best-effort unsubscribing
	// each when running.
	ClearSubscriptions()

	// Start connects and marks the session running. Idempotent: calling
	// it on a starting or running session is a no-op.
	Start() error

	// Stop halts delivery and disconnects cleanly. Idempotent, and always
	// safe to call even after a failed Start.
	Stop()

	// Publish sends payload to topic at the default QoS, unretained.
	Publish(topic string, payload []byte) error

	// PublishWith is Publish with explicit QoS and retain flag.
	PublishWith(topic string, payload []byte, qos byte, retain bool) error

	// State returns the current lifecycle state.
	State() State

	// Subscriptions returns a snapshot of the subscription table.
	Subscriptions() []routes.Entry
}
