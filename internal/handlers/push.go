package handlers

import (
	"context"
	"fmt"
	"path"

	"github.com/rs/zerolog"

	internalpipeline "github.com/plantops/edgeagent-go/internal/pipeline"
	"github.com/plantops/edgeagent-go/pkg/pipeline"
)

// PushConfig configures the push-to-server handler. Configuration is
// explicit data threaded into the constructor; the handler holds no
// mutable shared state.
type PushConfig struct {
	// DataDir is the local data directory synced to the central server.
	DataDir string

	// RemoteHost is the rsync/ssh destination host.
	RemoteHost string

	// RemotePath is the destination path for the data sync.
	RemotePath string

	// CentralizeLogs includes the log-centralization steps when true.
	CentralizeLogs bool

	// LogFolderName is the per-machine folder under RemoteLogRoot.
	LogFolderName string

	// LocalLogDir is the local log backup directory to centralize.
	LocalLogDir string

	// RemoteLogRoot is the server-side root the log folder lives under.
	RemoteLogRoot string
}

// Validate checks the fields the assembled steps will need.
func (c *PushConfig) Validate() error {
	if c.RemoteHost == "" {
		return fmt.Errorf("push: remote host cannot be empty")
	}
	if c.RemotePath == "" {
		return fmt.Errorf("push: remote path cannot be empty")
	}
	if c.CentralizeLogs && c.RemoteLogRoot == "" {
		return fmt.Errorf("push: remote log root required when centralizing logs")
	}
	return nil
}

// PushToServer handles TopicPushToServer. On each message it pushes the
// local data directory to the central server and, when log
// centralization is enabled, ensures the server-side log folder exists
// and copies the local log backups into it.
type PushToServer struct {
	cfg    PushConfig
	runner CommandRunner
	pipe   *internalpipeline.Runner
	log    zerolog.Logger
}

// NewPushToServer creates the handler.
func NewPushToServer(cfg PushConfig, runner CommandRunner, log zerolog.Logger) (*PushToServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CentralizeLogs {
		log.Info().Str("log_folder", cfg.LogFolderName).Msg("push-to-server: including log centralization steps")
	} else {
		log.Info().Msg("push-to-server: skipping log centralization steps")
	}
	return &PushToServer{
		cfg:    cfg,
		runner: runner,
		pipe:   internalpipeline.NewRunner(log),
		log:    log,
	}, nil
}

// Handle processes one message. The payload is ignored; the message is a
// bare trigger. The step list is assembled fresh on every invocation
// from the handler's configuration.
func (h *PushToServer) Handle(topic string, payload []byte) {
	h.log.Info().Str("topic", topic).Msg("push-to-server: message received")

	steps := []pipeline.Step{
		{Name: "push-data", Run: h.pushData},
	}
	if h.cfg.CentralizeLogs {
		steps = append(steps,
			// Creating the remote folder is only meaningful once per
			// process lifetime; re-verification is traded for latency.
			pipeline.Step{Name: "ensure-log-dir", Run: h.ensureLogDir, Once: true},
			pipeline.Step{Name: "copy-logs", Run: h.copyLogs},
		)
	}
	h.pipe.Run(context.Background(), "push-to-server", steps)
}

// pushData rsyncs the data directory to the central server.
func (h *PushToServer) pushData(ctx context.Context) error {
	dest := fmt.Sprintf("%s:%s", h.cfg.RemoteHost, h.cfg.RemotePath)
	return h.runner.Run(ctx, "rsync", "-az", "--delete", h.cfg.DataDir+"/", dest)
}

// ensureLogDir creates the per-machine log folder on the server.
func (h *PushToServer) ensureLogDir(ctx context.Context) error {
	dir := path.Join(h.cfg.RemoteLogRoot, h.cfg.LogFolderName)
	return h.runner.Run(ctx, "ssh", h.cfg.RemoteHost, "mkdir", "-p", dir)
}

// copyLogs rsyncs the local log backups into the server-side folder.
func (h *PushToServer) copyLogs(ctx context.Context) error {
	dir := path.Join(h.cfg.RemoteLogRoot, h.cfg.LogFolderName)
	dest := fmt.Sprintf("%s:%s", h.cfg.RemoteHost, dir)
	return h.runner.Run(ctx, "rsync", "-az", h.cfg.LocalLogDir+"/", dest)
}
