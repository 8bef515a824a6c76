package session

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/plantops/edgeagent-go/pkg/session"
)

const (
	// connectWait bounds how long Connect blocks on the initial attempt.
	// The transport keeps retrying in the background after it elapses.
	connectWait = 5 * time.Second

	// opWait bounds subscribe/unsubscribe/publish acknowledgement waits.
	opWait = 10 * time.Second

	// disconnectQuiesce is the grace period for in-flight work on Disconnect.
	disconnectQuiesce = 250 * time.Millisecond
)

// ErrNotBound is returned when Connect is called before Bind.
var ErrNotBound = errors.New("transport event callbacks not bound")

// BrokerConfig describes the MQTT broker connection.
type BrokerConfig struct {
	// Host is the broker hostname or IP address.
	Host string

	// Port is the broker port (1883 plain, 8883 TLS, conventionally).
	Port int

	// Username and Password authenticate against the broker. Optional.
	Username string
	Password string

	// TLSCA is a path to a CA certificate file. When set, the connection
	// uses TLS with server certificate verification against this CA.
	TLSCA string

	// Keepalive is the MQTT keepalive interval. Zero means 60s.
	Keepalive time.Duration
}

// Validate checks the broker configuration.
func (c *BrokerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("broker host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("broker port %d out of range", c.Port)
	}
	return nil
}

// URL returns the broker URL in the scheme paho expects.
func (c *BrokerConfig) URL() string {
	scheme := "tcp"
	if c.TLSCA != "" {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// PahoTransport adapts the Eclipse Paho MQTT client to the
// session.Transport interface. Reconnection with backoff, keepalive, and
// QoS delivery all belong to the underlying client; this adapter only
// translates calls and events.
//
// Paho dispatches callbacks from a single router goroutine with ordered
// delivery, which provides the serial callback guarantee the session
// relies on.
type PahoTransport struct {
	opts   *mqtt.ClientOptions
	client mqtt.Client
	bound  bool
}

// NewPahoTransport builds a transport for the given broker. The client ID
// is derived from hostname, pid, and a random suffix so parallel agents
// on one machine never collide.
func NewPahoTransport(cfg BrokerConfig) (*PahoTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broker config: %w", err)
	}

	keepalive := cfg.Keepalive
	if keepalive == 0 {
		keepalive = 60 * time.Second
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "edgeagent"
	}
	clientID := fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:6])

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL()).
		SetClientID(clientID).
		SetKeepAlive(keepalive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetOrderMatters(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLSCA != "" {
		tlsConfig, err := newTLSConfig(cfg.TLSCA)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return &PahoTransport{opts: opts}, nil
}

// Bind registers the event callbacks. Must be called before Connect,
// since paho fixes handlers in the client options.
func (t *PahoTransport) Bind(ev session.Events) {
	t.opts.SetOnConnectHandler(func(mqtt.Client) {
		if ev.OnConnect != nil {
			ev.OnConnect()
		}
	})
	t.opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if ev.OnConnectionLost != nil {
			ev.OnConnectionLost(err)
		}
	})
	t.opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		if ev.OnMessage != nil {
			ev.OnMessage(msg.Topic(), msg.Payload())
		}
	})
	t.bound = true
}

// Connect starts the client and blocks up to connectWait for the initial
// attempt. When the wait elapses the connect keeps retrying in the
// background and Connect returns nil; the OnConnect event reports the
// eventual success.
func (t *PahoTransport) Connect() error {
	if !t.bound {
		return ErrNotBound
	}
	t.client = mqtt.NewClient(t.opts)

	token := t.client.Connect()
	if !token.WaitTimeout(connectWait) {
		return nil // still connecting in the background
	}
	return token.Error()
}

// Disconnect cleanly closes the connection and stops the network loop.
func (t *PahoTransport) Disconnect() {
	if t.client == nil {
		return
	}
	t.client.Disconnect(uint(disconnectQuiesce.Milliseconds()))
}

// Subscribe registers filter at qos. Messages arrive through the bound
// OnMessage event.
func (t *PahoTransport) Subscribe(filter string, qos byte) error {
	if t.client == nil {
		return errors.New("not connected")
	}
	token := t.client.Subscribe(filter, qos, nil)
	if !token.WaitTimeout(opWait) {
		return fmt.Errorf("subscribe to %s timed out", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s rejected: %w", filter, err)
	}
	return nil
}

// Unsubscribe removes a filter registration.
func (t *PahoTransport) Unsubscribe(filter string) error {
	if t.client == nil {
		return errors.New("not connected")
	}
	token := t.client.Unsubscribe(filter)
	if !token.WaitTimeout(opWait) {
		return fmt.Errorf("unsubscribe from %s timed out", filter)
	}
	return token.Error()
}

// Publish sends payload to topic.
func (t *PahoTransport) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if t.client == nil {
		return errors.New("not connected")
	}
	token := t.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(opWait) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// newTLSConfig builds a TLS config that verifies the broker against the
// CA bundle at caFile.
func newTLSConfig(caFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("no certificates parsed from %s", caFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Verify that PahoTransport implements the session.Transport interface at compile time
var _ session.Transport = (*PahoTransport)(nil)
