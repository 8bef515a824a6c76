// Package tests exercises the agent end to end over an in-memory
// transport: session lifecycle, subscription replay, most-specific
// routing into the real handlers, and the admin API over a live session.
package tests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/edgeagent-go/internal/handlers"
	"github.com/plantops/edgeagent-go/internal/httpapi"
	internalsession "github.com/plantops/edgeagent-go/internal/session"
	"github.com/plantops/edgeagent-go/internal/tracker"
)

// recordingRunner captures shell commands instead of executing them.
type recordingRunner struct {
	mu       sync.Mutex
	commands []string
	failOn   string
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if r.failOn != "" && strings.Contains(cmd, r.failOn) {
		return errors.New("command failed")
	}
	return nil
}

func (r *recordingRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

func newAgent(t *testing.T, runner handlers.CommandRunner, pull bool) (*internalsession.MQTTSession, *internalsession.FakeTransport) {
	t.Helper()
	log := zerolog.Nop()
	transport := internalsession.NewFakeTransport()
	sess := internalsession.New(transport, internalsession.Config{Logger: &log})

	push, err := handlers.NewPushToServer(handlers.PushConfig{
		DataDir:        "data",
		RemoteHost:     "central",
		RemotePath:     "/srv/data",
		CentralizeLogs: true,
		LogFolderName:  "press01",
		LocalLogDir:    "logs",
		RemoteLogRoot:  "/srv/logs",
	}, runner, log)
	require.NoError(t, err)
	require.NoError(t, sess.Subscribe(handlers.TopicPushToServer, push.Handle))

	if pull {
		syncOrders, err := handlers.NewSyncOrders(handlers.SyncConfig{
			RemoteHost: "central",
			RemotePath: "/srv/recipes",
			LocalDir:   "recipes",
		}, runner, log)
		require.NoError(t, err)
		require.NoError(t, sess.Subscribe(handlers.TopicOrdersSynced, syncOrders.Handle))
	}

	require.NoError(t, sess.Start())
	transport.DeliverConnect()
	return sess, transport
}

func TestAgentEndToEnd_PushAndPull(t *testing.T) {
	runner := &recordingRunner{}
	sess, transport := newAgent(t, runner, true)
	defer sess.Stop()

	// Replay subscribed both handler topics on connect.
	subs := transport.Subscribes()
	require.Len(t, subs, 2)
	filters := []string{subs[0].Filter, subs[1].Filter}
	assert.Contains(t, filters, handlers.TopicPushToServer)
	assert.Contains(t, filters, handlers.TopicOrdersSynced)

	// A push trigger runs data sync, log dir creation and log copy.
	transport.DeliverMessage(handlers.TopicPushToServer, []byte("go"))
	assert.Equal(t, []string{
		"rsync -az --delete data/ central:/srv/data",
		"ssh central mkdir -p /srv/logs/press01",
		"rsync -az logs/ central:/srv/logs/press01",
	}, runner.Commands())

	// A sync notification pulls the recipes.
	transport.DeliverMessage(handlers.TopicOrdersSynced, []byte("go"))
	cmds := runner.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, "rsync -az central:/srv/recipes/ recipes", cmds[3])
}

func TestAgentEndToEnd_LogDirCreatedOncePerProcess(t *testing.T) {
	runner := &recordingRunner{}
	sess, transport := newAgent(t, runner, false)
	defer sess.Stop()

	transport.DeliverMessage(handlers.TopicPushToServer, []byte("go"))
	transport.DeliverMessage(handlers.TopicPushToServer, []byte("go"))

	mkdirs := 0
	for _, cmd := range runner.Commands() {
		if strings.Contains(cmd, "mkdir") {
			mkdirs++
		}
	}
	assert.Equal(t, 1, mkdirs, "log dir creation should be memoized")
	assert.Len(t, runner.Commands(), 5)
}

func TestAgentEndToEnd_FailureShortCircuitsPipeline(t *testing.T) {
	runner := &recordingRunner{failOn: "--delete"}
	sess, transport := newAgent(t, runner, false)
	defer sess.Stop()

	transport.DeliverMessage(handlers.TopicPushToServer, []byte("go"))

	// Data push failed, so the log steps never ran.
	assert.Len(t, runner.Commands(), 1)
}

func TestAgentEndToEnd_ReconnectReplaysSubscriptions(t *testing.T) {
	runner := &recordingRunner{}
	sess, transport := newAgent(t, runner, true)
	defer sess.Stop()

	transport.ResetCalls()
	transport.DropConnection(errors.New("broker restarted"))
	transport.DeliverConnect()

	subs := transport.Subscribes()
	assert.Len(t, subs, 2, "reconnect should replay the whole table")

	// Handlers still route after the reconnect.
	transport.DeliverMessage(handlers.TopicOrdersSynced, []byte("go"))
	cmds := runner.Commands()
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "/srv/recipes")
}

func TestAgentEndToEnd_TrackerPublishesThroughSession(t *testing.T) {
	runner := &recordingRunner{}
	sess, transport := newAgent(t, runner, false)
	defer sess.Stop()

	log := zerolog.Nop()
	trk := tracker.New(sess, tracker.Config{
		Interval:    time.Minute,
		TopicPrefix: "edgeagent",
		Version:     "test",
	}, log)

	transport.ResetCalls()
	trk.Tick(time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))

	pubs := transport.Publishes()
	require.Len(t, pubs, 2, "first tick publishes version and heartbeat")
	for _, pub := range pubs {
		assert.True(t, strings.HasPrefix(pub.Topic, "edgeagent/"), pub.Topic)
		assert.True(t, pub.Retain)
		assert.Equal(t, byte(1), pub.QoS)
	}
}

func TestAgentEndToEnd_AdminAPIOverLiveSession(t *testing.T) {
	runner := &recordingRunner{}
	sess, _ := newAgent(t, runner, true)
	defer sess.Stop()

	log := zerolog.Nop()
	server, err := httpapi.NewServer(sess, httpapi.Config{
		Addr:      ":0",
		SecretKey: "integration-secret",
		Version:   "test",
	}, log)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	client := ts.Client()

	// Login, then read status and subscriptions with the token.
	resp, err := client.Post(ts.URL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"clientId":"itest"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	statusResp, err := client.Do(req)
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status struct {
		State         string `json:"state"`
		Subscriptions int    `json:"subscriptions"`
	}
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, "running", status.State)
	assert.Equal(t, 2, status.Subscriptions)
}
