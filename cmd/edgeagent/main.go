package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/plantops/edgeagent-go/internal/config"
	"github.com/plantops/edgeagent-go/internal/handlers"
	"github.com/plantops/edgeagent-go/internal/httpapi"
	"github.com/plantops/edgeagent-go/internal/logging"
	internalsession "github.com/plantops/edgeagent-go/internal/session"
	"github.com/plantops/edgeagent-go/internal/tracker"
)

const (
	appName    = "edgeagent"
	appVersion = "1.0.0"
)

func main() {
	var (
		envFile     = flag.String("env", "", "Path to a .env file to load before reading the environment")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load env file %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Options{
		Dir:   cfg.LogDir,
		Name:  appName,
		Debug: cfg.Debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", appVersion).
		Str("broker", cfg.Broker.Host).
		Int("port", cfg.Broker.Port).
		Msg("starting agent")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("agent exited with error")
		os.Exit(1)
	}
	log.Info().Msg("agent stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	transport, err := internalsession.NewPahoTransport(internalsession.BrokerConfig{
		Host:      cfg.Broker.Host,
		Port:      cfg.Broker.Port,
		Username:  cfg.Broker.Username,
		Password:  cfg.Broker.Password,
		TLSCA:     cfg.Broker.TLSCA,
		Keepalive: cfg.Broker.Keepalive,
	})
	if err != nil {
		return fmt.Errorf("transport setup: %w", err)
	}

	sess := internalsession.New(transport, internalsession.Config{
		DefaultQoS: cfg.DefaultQoS,
		DefaultHandler: func(topic string, payload []byte) {
			log.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("unrouted message dropped")
		},
		OnConnect: func() {
			log.Info().Msg("connected to broker")
		},
		OnDisconnect: func(err error) {
			if err != nil {
				log.Warn().Err(err).Msg("connection lost, reconnecting")
			}
		},
		Logger: &log,
	})

	if err := registerHandlers(sess, cfg, log); err != nil {
		return err
	}

	if err := sess.Start(); err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	defer sess.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trk := tracker.New(sess, tracker.Config{
		Interval:    cfg.Heartbeat.Interval,
		TopicPrefix: cfg.Heartbeat.TopicPrefix,
		Version:     appVersion,
	}, log)
	go trk.Run(ctx)

	if cfg.HTTP.Enabled {
		api, err := httpapi.NewServer(sess, httpapi.Config{
			Addr:      cfg.HTTP.Addr,
			SecretKey: cfg.HTTP.SecretKey,
			NoAuth:    cfg.HTTP.NoAuth,
			Version:   appVersion,
		}, log)
		if err != nil {
			return fmt.Errorf("admin api setup: %w", err)
		}
		go func() {
			if err := api.Start(); err != nil {
				log.Error().Err(err).Msg("admin api server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := api.Stop(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("admin api shutdown error")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	return nil
}

// registerHandlers wires the agent's message handlers into the session's
// subscription table before the first connect, so the initial replay
// subscribes everything in one pass.
func registerHandlers(sess *internalsession.MQTTSession, cfg *config.Config, log zerolog.Logger) error {
	runner := handlers.NewExecRunner(log)

	push, err := handlers.NewPushToServer(handlers.PushConfig{
		DataDir:        cfg.Push.DataDir,
		RemoteHost:     cfg.Push.RemoteHost,
		RemotePath:     cfg.Push.RemotePath,
		CentralizeLogs: cfg.Push.CentralizeLogs,
		LogFolderName:  cfg.Push.LogFolderName,
		LocalLogDir:    cfg.Push.LocalLogDir,
		RemoteLogRoot:  cfg.Push.RemoteLogRoot,
	}, runner, log)
	if err != nil {
		return fmt.Errorf("push handler setup: %w", err)
	}
	if err := sess.Subscribe(handlers.TopicPushToServer, push.Handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", handlers.TopicPushToServer, err)
	}

	if cfg.Pull.Enabled {
		sync, err := handlers.NewSyncOrders(handlers.SyncConfig{
			RemoteHost: cfg.Push.RemoteHost,
			RemotePath: cfg.Pull.RemotePath,
			LocalDir:   cfg.Pull.LocalDir,
		}, runner, log)
		if err != nil {
			return fmt.Errorf("sync handler setup: %w", err)
		}
		if err := sess.Subscribe(handlers.TopicOrdersSynced, sync.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", handlers.TopicOrdersSynced, err)
		}
	}

	return nil
}
