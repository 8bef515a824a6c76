package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/edgeagent-go/pkg/session"
)

func TestSession_StartIsIdempotent(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	assert.Equal(t, 1, ft.ConnectCalls(), "repeated Start must not reconnect")
	assert.Equal(t, session.Running, s.State())
}

func TestSession_StartToleratesConnectFailure(t *testing.T) {
	ft := NewFakeTransport()
	ft.ConnectErr = errors.New("connection refused")
	s := New(ft, Config{})

	// The transport retries internally, so Start succeeds and the
	// session is running from the caller's point of view.
	require.NoError(t, s.Start())
	assert.Equal(t, session.Running, s.State())

	// Stop is safe after a failed start.
	s.Stop()
	assert.Equal(t, session.Stopped, s.State())
}

func TestSession_StopIsIdempotent(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	s.Stop()
	assert.Equal(t, 0, ft.DisconnectCalls(), "stopping a stopped session is a no-op")

	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
	assert.Equal(t, 1, ft.DisconnectCalls())
	assert.Equal(t, session.Stopped, s.State())
}

func TestSession_ReplaysSubscriptionsOnEveryConnect(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	require.NoError(t, s.SubscribeQoS("plc/push_to_server", nil, 1))
	require.NoError(t, s.SubscribeQoS("as400/shop_order_recipes_synced", nil, 2))
	require.NoError(t, s.Start())

	ft.DeliverConnect()
	subs := ft.Subscribes()
	require.Len(t, subs, 2, "each filter receives exactly one subscribe")
	assert.Equal(t, SubscribeCall{Filter: "plc/push_to_server", QoS: 1}, subs[0])
	assert.Equal(t, SubscribeCall{Filter: "as400/shop_order_recipes_synced", QoS: 2}, subs[1])

	// A reconnect replays the full table again.
	ft.ResetCalls()
	ft.DropConnection(errors.New("broker restarted"))
	ft.DeliverConnect()
	assert.Len(t, ft.Subscribes(), 2)
}

func TestSession_ReplayContinuesPastFailedFilter(t *testing.T) {
	ft := NewFakeTransport()
	ft.SubscribeErrs = map[string]error{"bad/filter": errors.New("not authorized")}
	s := New(ft, Config{})

	require.NoError(t, s.Subscribe("bad/filter", nil))
	require.NoError(t, s.Subscribe("good/filter", nil))
	require.NoError(t, s.Start())

	ft.DeliverConnect()
	subs := ft.Subscribes()
	require.Len(t, subs, 2, "a failed subscribe must not block the remaining filters")
	assert.Equal(t, "good/filter", subs[1].Filter)
}

func TestSession_SubscribeWhileRunningIssuesLiveSubscribe(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})
	require.NoError(t, s.Start())

	require.NoError(t, s.Subscribe("sensors/#", nil))
	subs := ft.Subscribes()
	require.Len(t, subs, 1)
	assert.Equal(t, SubscribeCall{Filter: "sensors/#", QoS: DefaultQoS}, subs[0])
}

func TestSession_SubscribeWhileStoppedDefersToReplay(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	require.NoError(t, s.Subscribe("sensors/#", nil))
	assert.Empty(t, ft.Subscribes(), "no live subscribe before the session runs")

	require.NoError(t, s.Start())
	ft.DeliverConnect()
	assert.Len(t, ft.Subscribes(), 1)
}

func TestSession_SubscribeRejectsMalformedFilter(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	err := s.Subscribe("a/#/b", nil)
	require.Error(t, err)
	assert.Empty(t, s.Subscriptions())
}

func TestSession_LiveSubscribeFailureKeepsTableEntry(t *testing.T) {
	ft := NewFakeTransport()
	ft.SubscribeErrs = map[string]error{"sensors/#": errors.New("broker overloaded")}
	s := New(ft, Config{})
	require.NoError(t, s.Start())

	require.NoError(t, s.Subscribe("sensors/#", nil), "transport failure must not surface")
	require.Len(t, s.Subscriptions(), 1, "entry stays for the next reconnect replay")

	// The reconnect replay retries the filter.
	ft.ResetCalls()
	ft.SubscribeErrs = nil
	ft.DeliverConnect()
	assert.Len(t, ft.Subscribes(), 1)
}

func TestSession_UnsubscribeAndClear(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})
	require.NoError(t, s.Start())

	require.NoError(t, s.Subscribe("a/b", nil))
	require.NoError(t, s.Subscribe("c/d", nil))

	s.Unsubscribe("a/b")
	assert.Equal(t, []string{"a/b"}, ft.Unsubscribes())
	require.Len(t, s.Subscriptions(), 1)

	s.ClearSubscriptions()
	assert.Equal(t, []string{"a/b", "c/d"}, ft.Unsubscribes())
	assert.Empty(t, s.Subscriptions())
}

func TestSession_RoutesToMostSpecificHandler(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	var invoked []string
	record := func(name string) func(string, []byte) {
		return func(topic string, payload []byte) {
			invoked = append(invoked, name)
		}
	}

	require.NoError(t, s.Subscribe("sensors/#", record("H1")))
	require.NoError(t, s.Subscribe("sensors/temp", record("H2")))
	require.NoError(t, s.Start())
	ft.DeliverConnect()

	ft.DeliverMessage("sensors/temp", []byte("21.5"))
	assert.Equal(t, []string{"H2"}, invoked, "exact filter beats the catch-all")

	ft.DeliverMessage("sensors/humidity", []byte("40"))
	assert.Equal(t, []string{"H2", "H1"}, invoked, "catch-all takes the rest")
}

func TestSession_FallsBackToDefaultHandler(t *testing.T) {
	ft := NewFakeTransport()

	var defaultTopics []string
	s := New(ft, Config{
		DefaultHandler: func(topic string, payload []byte) {
			defaultTopics = append(defaultTopics, topic)
		},
	})

	// A filter registered without a handler routes to the default.
	require.NoError(t, s.Subscribe("plant/announcements/#", nil))
	require.NoError(t, s.Start())

	ft.DeliverMessage("plant/announcements/shift", nil)
	assert.Equal(t, []string{"plant/announcements/shift"}, defaultTopics)

	// So does a topic matching no filter at all.
	ft.DeliverMessage("unrelated/topic", nil)
	assert.Equal(t, []string{"plant/announcements/shift", "unrelated/topic"}, defaultTopics)
}

func TestSession_NoHandlerNoDefaultIsDropped(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})
	require.NoError(t, s.Start())

	// Must not panic.
	ft.DeliverMessage("nobody/listening", []byte("x"))
}

func TestSession_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{})

	var delivered int
	require.NoError(t, s.Subscribe("bad/topic", func(string, []byte) {
		panic("handler bug")
	}))
	require.NoError(t, s.Subscribe("good/topic", func(string, []byte) {
		delivered++
	}))
	require.NoError(t, s.Start())

	ft.DeliverMessage("bad/topic", nil)
	ft.DeliverMessage("good/topic", nil)
	assert.Equal(t, 1, delivered, "a panicking handler must not kill delivery")
}

func TestSession_ConnectCallbackPanicIsIsolated(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{
		OnConnect: func() { panic("callback bug") },
	})
	require.NoError(t, s.Subscribe("a/b", nil))
	require.NoError(t, s.Start())

	// Replay must have completed despite the panicking callback.
	ft.DeliverConnect()
	assert.Len(t, ft.Subscribes(), 1)
}

func TestSession_DisconnectCallbackReasons(t *testing.T) {
	ft := NewFakeTransport()

	var reasons []error
	s := New(ft, Config{
		OnDisconnect: func(err error) { reasons = append(reasons, err) },
	})
	require.NoError(t, s.Start())

	lost := errors.New("keepalive timeout")
	ft.DropConnection(lost)
	assert.Equal(t, session.Running, s.State(), "unexpected loss keeps the session running")

	s.Stop()
	require.Len(t, reasons, 2)
	assert.ErrorIs(t, reasons[0], lost)
	assert.NoError(t, reasons[1], "explicit stop reports a clean disconnect")
}

func TestSession_PublishDefaultsAndOverrides(t *testing.T) {
	ft := NewFakeTransport()
	s := New(ft, Config{DefaultQoS: 2})
	require.NoError(t, s.Start())

	require.NoError(t, s.Publish("edgeagent/heartbeat/host", []byte("{}")))
	require.NoError(t, s.PublishWith("edgeagent/version/host", []byte("{}"), 1, true))

	pubs := ft.Publishes()
	require.Len(t, pubs, 2)
	assert.Equal(t, byte(2), pubs[0].QoS)
	assert.False(t, pubs[0].Retain)
	assert.Equal(t, byte(1), pubs[1].QoS)
	assert.True(t, pubs[1].Retain)
}

func TestBrokerConfig(t *testing.T) {
	cfg := BrokerConfig{Host: "broker.local", Port: 1883}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tcp://broker.local:1883", cfg.URL())

	cfg.TLSCA = "/etc/edgeagent/ca.pem"
	cfg.Port = 8883
	assert.Equal(t, "ssl://broker.local:8883", cfg.URL())

	assert.Error(t, (&BrokerConfig{Port: 1883}).Validate())
	assert.Error(t, (&BrokerConfig{Host: "x", Port: 0}).Validate())
	assert.Error(t, (&BrokerConfig{Host: "x", Port: 70000}).Validate())
}
