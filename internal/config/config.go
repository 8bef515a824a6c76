// Package config loads the agent's configuration from environment
// variables, with optional .env file support.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrMissingEnv is returned when a required environment variable is
	// missing or empty.
	ErrMissingEnv = errors.New("required environment variable missing")
)

// Broker holds the MQTT broker connection settings.
type Broker struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSCA     string
	Keepalive time.Duration
}

// Push configures the push-to-server handler.
type Push struct {
	// DataDir is the local data directory synced to the central server.
	DataDir string

	// RemoteHost is the ssh/rsync destination host.
	RemoteHost string

	// RemotePath is the destination path for the data sync.
	RemotePath string

	// CentralizeLogs enables the log-centralization steps.
	CentralizeLogs bool

	// LogFolderName is the per-machine folder under the server's log
	// root. Defaults to the hostname.
	LogFolderName string

	// LocalLogDir is the local log backup directory to centralize.
	LocalLogDir string

	// RemoteLogRoot is the server-side root the log folder lives under.
	RemoteLogRoot string
}

// Pull configures the order-recipe sync handler.
type Pull struct {
	// Enabled controls whether the agent subscribes to the sync topic.
	Enabled bool

	// RemotePath is the source path on the central server.
	RemotePath string

	// LocalDir is the local destination directory.
	LocalDir string
}

// Heartbeat configures the periodic status publisher.
type Heartbeat struct {
	Interval    time.Duration
	TopicPrefix string
}

// HTTP configures the admin API.
type HTTP struct {
	Enabled   bool
	Addr      string
	SecretKey string
	NoAuth    bool
}

// Config is the agent's full configuration. It is immutable after Load.
type Config struct {
	Debug      bool
	LogDir     string
	DefaultQoS byte

	Broker    Broker
	Push      Push
	Pull      Pull
	Heartbeat Heartbeat
	HTTP      HTTP
}

// Load reads configuration from the environment. A .env file next to the
// working directory is loaded first when present; real environment
// variables win over .env entries.
func Load() (*Config, error) {
	// Missing .env is not an error; the environment may be complete.
	_ = godotenv.Load()

	broker, err := loadBroker()
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "edgeagent"
	}

	cfg := &Config{
		Debug:      getBool("LOG_LEVEL_DEBUG", false),
		LogDir:     get("LOG_DIR", "logs"),
		DefaultQoS: byte(getInt("MQTT_DEFAULT_QOS", 1)),
		Broker:     broker,
		Push: Push{
			DataDir:        get("PUSH_DATA_DIR", "data"),
			RemoteHost:     get("PUSH_REMOTE_HOST", ""),
			RemotePath:     get("PUSH_REMOTE_PATH", ""),
			CentralizeLogs: getBool("PUSH_CENTRALIZE_LOGS", false),
			LogFolderName:  get("PUSH_LOG_FOLDER_NAME", hostname),
			LocalLogDir:    get("PUSH_LOCAL_LOG_DIR", "logs"),
			RemoteLogRoot:  get("PUSH_REMOTE_LOG_ROOT", ""),
		},
		Pull: Pull{
			Enabled:    getBool("PULL_SHOP_ORDERS", false),
			RemotePath: get("PULL_REMOTE_PATH", ""),
			LocalDir:   get("PULL_LOCAL_DIR", "recipes"),
		},
		Heartbeat: Heartbeat{
			Interval:    getDuration("HEARTBEAT_INTERVAL", 60*time.Second),
			TopicPrefix: get("HEARTBEAT_TOPIC_PREFIX", "edgeagent"),
		},
		HTTP: HTTP{
			Enabled:   getBool("HTTP_API_ENABLED", false),
			Addr:      get("HTTP_API_ADDR", ":8081"),
			SecretKey: get("HTTP_API_SECRET", ""),
			NoAuth:    getBool("HTTP_API_NO_AUTH", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DefaultQoS > 2 {
		return fmt.Errorf("MQTT_DEFAULT_QOS must be 0, 1 or 2, got %d", c.DefaultQoS)
	}
	if c.Heartbeat.Interval <= 0 {
		return errors.New("HEARTBEAT_INTERVAL must be positive")
	}
	if c.HTTP.Enabled && !c.HTTP.NoAuth && c.HTTP.SecretKey == "" {
		return errors.New("HTTP_API_SECRET is required unless HTTP_API_NO_AUTH is set")
	}
	return nil
}

func loadBroker() (Broker, error) {
	host, err := getRequired("MQTT_HOST")
	if err != nil {
		return Broker{}, err
	}
	port := getInt("MQTT_PORT", 1883)
	if port <= 0 || port > 65535 {
		return Broker{}, fmt.Errorf("MQTT_PORT %d out of range", port)
	}

	tlsCA := get("MQTT_TLS_CA", "")
	if tlsCA != "" && !filepath.IsAbs(tlsCA) {
		// Relative CA paths resolve against a certs directory next to
		// the binary, matching the deployed layout.
		if exe, err := os.Executable(); err == nil {
			tlsCA = filepath.Join(filepath.Dir(exe), "certs", tlsCA)
		}
	}

	return Broker{
		Host:      host,
		Port:      port,
		Username:  get("MQTT_USER", ""),
		Password:  get("MQTT_PASS", ""),
		TLSCA:     tlsCA,
		Keepalive: getDuration("MQTT_KEEPALIVE", 60*time.Second),
	}, nil
}
