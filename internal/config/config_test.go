package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresBrokerHost(t *testing.T) {
	t.Setenv("MQTT_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEnv)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MQTT_HOST", "broker.plant.local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "broker.plant.local", cfg.Broker.Host)
	assert.Equal(t, 1883, cfg.Broker.Port)
	assert.Equal(t, 60*time.Second, cfg.Broker.Keepalive)
	assert.Equal(t, byte(1), cfg.DefaultQoS)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.Pull.Enabled)
	assert.False(t, cfg.Push.CentralizeLogs)
	assert.NotEmpty(t, cfg.Push.LogFolderName, "log folder defaults to the hostname")
	assert.Equal(t, 60*time.Second, cfg.Heartbeat.Interval)
	assert.Equal(t, "edgeagent", cfg.Heartbeat.TopicPrefix)
	assert.False(t, cfg.HTTP.Enabled)
}

func TestLoad_FullEnvironment(t *testing.T) {
	t.Setenv("MQTT_HOST", "broker")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_USER", "agent")
	t.Setenv("MQTT_PASS", "secret")
	t.Setenv("MQTT_KEEPALIVE", "30s")
	t.Setenv("MQTT_DEFAULT_QOS", "2")
	t.Setenv("LOG_LEVEL_DEBUG", "true")
	t.Setenv("PULL_SHOP_ORDERS", "yes")
	t.Setenv("PUSH_CENTRALIZE_LOGS", "on")
	t.Setenv("PUSH_LOG_FOLDER_NAME", "line-3")
	t.Setenv("HEARTBEAT_INTERVAL", "5m")
	t.Setenv("HTTP_API_ENABLED", "1")
	t.Setenv("HTTP_API_SECRET", "hmac-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8883, cfg.Broker.Port)
	assert.Equal(t, "agent", cfg.Broker.Username)
	assert.Equal(t, 30*time.Second, cfg.Broker.Keepalive)
	assert.Equal(t, byte(2), cfg.DefaultQoS)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Pull.Enabled)
	assert.True(t, cfg.Push.CentralizeLogs)
	assert.Equal(t, "line-3", cfg.Push.LogFolderName)
	assert.Equal(t, 5*time.Minute, cfg.Heartbeat.Interval)
	assert.True(t, cfg.HTTP.Enabled)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Setenv("MQTT_HOST", "broker")

	t.Setenv("MQTT_PORT", "99999")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("MQTT_PORT", "")

	t.Setenv("MQTT_DEFAULT_QOS", "3")
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("MQTT_DEFAULT_QOS", "")

	// Auth-enabled API without a secret is rejected.
	t.Setenv("HTTP_API_ENABLED", "true")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("HTTP_API_NO_AUTH", "true")
	_, err = Load()
	assert.NoError(t, err, "no-auth mode does not need a secret")
}

func TestEnvCoercions(t *testing.T) {
	t.Setenv("X_BOOL", "On")
	assert.True(t, getBool("X_BOOL", false))
	t.Setenv("X_BOOL", "nope")
	assert.False(t, getBool("X_BOOL", true))
	assert.True(t, getBool("X_UNSET", true))

	t.Setenv("X_INT", "1_000")
	assert.Equal(t, 1000, getInt("X_INT", 0))
	t.Setenv("X_INT", "junk")
	assert.Equal(t, 7, getInt("X_INT", 7))

	t.Setenv("X_DUR", "90")
	assert.Equal(t, 90*time.Second, getDuration("X_DUR", 0))
	t.Setenv("X_DUR", "2h")
	assert.Equal(t, 2*time.Hour, getDuration("X_DUR", 0))
	t.Setenv("X_DUR", "1d")
	assert.Equal(t, 24*time.Hour, getDuration("X_DUR", 0))
	t.Setenv("X_DUR", "bogus")
	assert.Equal(t, time.Minute, getDuration("X_DUR", time.Minute))

	t.Setenv("X_LIST", " a, b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, getList("X_LIST"))
	assert.Nil(t, getList("X_UNSET"))
}
