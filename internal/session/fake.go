package session

import (
	"sync"

	"github.com/plantops/edgeagent-go/pkg/session"
)

// SubscribeCall records one Subscribe issued against a FakeTransport.
type SubscribeCall struct {
	Filter string
	QoS    byte
}

// PublishCall records one Publish issued against a FakeTransport.
type PublishCall struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// FakeTransport is an in-memory session.Transport for tests. Tests drive
// the event side directly: DeliverConnect simulates a broker (re)connect,
// DeliverMessage injects an inbound message synchronously, and
// DropConnection simulates an unexpected disconnect.
//
// Calls are recorded and per-filter subscribe errors can be scripted.
type FakeTransport struct {
	mu sync.Mutex
	ev session.Events

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error

	// SubscribeErrs maps filters to errors their Subscribe calls return.
	SubscribeErrs map[string]error

	connectCalls    int
	disconnectCalls int
	subscribes      []SubscribeCall
	unsubscribes    []string
	publishes       []PublishCall
}

// NewFakeTransport creates an empty fake transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Bind stores the session's event callbacks.
func (f *FakeTransport) Bind(ev session.Events) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev = ev
}

// Connect records the call and returns the scripted error, if any.
func (f *FakeTransport) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	return f.ConnectErr
}

// Disconnect records the call.
func (f *FakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCalls++
}

// Subscribe records the call and returns any scripted error for filter.
func (f *FakeTransport) Subscribe(filter string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, SubscribeCall{Filter: filter, QoS: qos})
	return f.SubscribeErrs[filter]
}

// Unsubscribe records the call.
func (f *FakeTransport) Unsubscribe(filter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes = append(f.unsubscribes, filter)
	return nil
}

// Publish records the call.
func (f *FakeTransport) Publish(topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, PublishCall{Topic: topic, Payload: payload, QoS: qos, Retain: retain})
	return nil
}

// DeliverConnect fires the bound OnConnect callback, simulating a
// successful broker connect or reconnect.
func (f *FakeTransport) DeliverConnect() {
	if cb := f.events().OnConnect; cb != nil {
		cb()
	}
}

// DeliverMessage fires the bound OnMessage callback synchronously.
func (f *FakeTransport) DeliverMessage(topic string, payload []byte) {
	if cb := f.events().OnMessage; cb != nil {
		cb(topic, payload)
	}
}

// DropConnection fires the bound OnConnectionLost callback.
func (f *FakeTransport) DropConnection(err error) {
	if cb := f.events().OnConnectionLost; cb != nil {
		cb(err)
	}
}

// ConnectCalls returns how many times Connect was called.
func (f *FakeTransport) ConnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

// DisconnectCalls returns how many times Disconnect was called.
func (f *FakeTransport) DisconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}

// Subscribes returns a copy of the recorded Subscribe calls.
func (f *FakeTransport) Subscribes() []SubscribeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SubscribeCall, len(f.subscribes))
	copy(out, f.subscribes)
	return out
}

// Unsubscribes returns a copy of the recorded Unsubscribe filters.
func (f *FakeTransport) Unsubscribes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.unsubscribes))
	copy(out, f.unsubscribes)
	return out
}

// Publishes returns a copy of the recorded Publish calls.
func (f *FakeTransport) Publishes() []PublishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PublishCall, len(f.publishes))
	copy(out, f.publishes)
	return out
}

// ResetCalls clears all recorded calls, keeping bindings and scripting.
func (f *FakeTransport) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls = 0
	f.disconnectCalls = 0
	f.subscribes = nil
	f.unsubscribes = nil
	f.publishes = nil
}

func (f *FakeTransport) events() session.Events {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ev
}

// Verify that FakeTransport implements the session.Transport interface at compile time
var _ session.Transport = (*FakeTransport)(nil)
