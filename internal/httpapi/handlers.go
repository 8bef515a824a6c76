package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/plantops/edgeagent-go/pkg/session"
)

// Handlers implements the admin API endpoints over the agent's session.
type Handlers struct {
	session session.Session
	jwtAuth *JWTAuth
	version string
	started time.Time
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(sess session.Session, jwtAuth *JWTAuth, version string) *Handlers {
	return &Handlers{
		session: sess,
		jwtAuth: jwtAuth,
		version: version,
		started: time.Now(),
	}
}

// Login exchanges a client ID for a bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		writeError(w, "clientId is required", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.ClientID)
	if err != nil {
		writeError(w, "Failed to create token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token:     token,
		ClientID:  req.ClientID,
		ExpiresAt: expiresAt,
	})
}

// Status reports the session state and basic agent facts.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		State:         h.session.State().String(),
		Version:       h.version,
		Hostname:      hostname,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Subscriptions: len(h.session.Subscriptions()),
	})
}

// Subscriptions lists the subscription table.
func (h *Handlers) Subscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.session.Subscriptions()
	resp := SubscriptionsResponse{Subscriptions: make([]SubscriptionInfo, 0, len(entries))}
	for _, e := range entries {
		resp.Subscriptions = append(resp.Subscriptions, SubscriptionInfo{Filter: e.Filter, QoS: e.QoS})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Publish sends a message through the agent's session.
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Topic == "" {
		writeError(w, "topic is required", http.StatusBadRequest)
		return
	}

	var err error
	if req.QoS != nil {
		if *req.QoS > 2 {
			writeError(w, "qos must be 0, 1 or 2", http.StatusBadRequest)
			return
		}
		err = h.session.PublishWith(req.Topic, []byte(req.Payload), *req.QoS, req.Retain)
	} else if req.Retain {
		err = h.session.PublishWith(req.Topic, []byte(req.Payload), 1, true)
	} else {
		err = h.session.Publish(req.Topic, []byte(req.Payload))
	}
	if err != nil {
		writeError(w, "Publish failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, PublishResponse{Topic: req.Topic, Timestamp: time.Now()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
