package httpclient

import "time"

// Response types mirror the admin API's JSON bodies.

// AuthResponse is the login response.
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StatusResponse reports the agent's session state.
type StatusResponse struct {
	State         string `json:"state"`
	Version       string `json:"version"`
	Hostname      string `json:"hostname"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Subscriptions int    `json:"subscriptions"`
}

// SubscriptionInfo is one subscription table entry.
type SubscriptionInfo struct {
	Filter string `json:"filter"`
	QoS    byte   `json:"qos"`
}

// SubscriptionsResponse lists the subscription table.
type SubscriptionsResponse struct {
	Subscriptions []SubscriptionInfo `json:"subscriptions"`
}

// PublishRequest asks the agent to publish through its session.
type PublishRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
	QoS     *byte  `json:"qos,omitempty"`
	Retain  bool   `json:"retain,omitempty"`
}

// PublishResponse confirms a publish.
type PublishResponse struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
