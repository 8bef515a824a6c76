package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	internalpipeline "github.com/plantops/edgeagent-go/internal/pipeline"
	"github.com/plantops/edgeagent-go/pkg/pipeline"
)

// SyncConfig configures the order-recipe sync handler.
type SyncConfig struct {
	// RemoteHost is the rsync source host.
	RemoteHost string

	// RemotePath is the source path on the central server.
	RemotePath string

	// LocalDir is the local destination directory.
	LocalDir string
}

// Validate checks the fields the pull step will need.
func (c *SyncConfig) Validate() error {
	if c.RemoteHost == "" {
		return fmt.Errorf("sync: remote host cannot be empty")
	}
	if c.RemotePath == "" {
		return fmt.Errorf("sync: remote path cannot be empty")
	}
	if c.LocalDir == "" {
		return fmt.Errorf("sync: local dir cannot be empty")
	}
	return nil
}

// SyncOrders handles TopicOrdersSynced: when the order system announces a
// recipe refresh, it pulls the recipe files from the central server.
type SyncOrders struct {
	cfg    SyncConfig
	runner CommandRunner
	pipe   *internalpipeline.Runner
	log    zerolog.Logger
}

// NewSyncOrders creates the handler.
func NewSyncOrders(cfg SyncConfig, runner CommandRunner, log zerolog.Logger) (*SyncOrders, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SyncOrders{
		cfg:    cfg,
		runner: runner,
		pipe:   internalpipeline.NewRunner(log),
		log:    log,
	}, nil
}

// Handle processes one message. The payload is ignored; the message is a
// bare trigger.
func (h *SyncOrders) Handle(topic string, payload []byte) {
	h.log.Info().Str("topic", topic).Msg("sync-orders: message received")

	h.pipe.Run(context.Background(), "sync-orders", []pipeline.Step{
		{Name: "pull-recipes", Run: h.pullRecipes},
	})
}

// pullRecipes rsyncs recipe files from the central server.
func (h *SyncOrders) pullRecipes(ctx context.Context) error {
	src := fmt.Sprintf("%s:%s/", h.cfg.RemoteHost, h.cfg.RemotePath)
	return h.runner.Run(ctx, "rsync", "-az", src, h.cfg.LocalDir)
}
