// Package logging builds the agent's root zerolog logger: a rotating file
// in the configured log directory, with console output added only at
// debug level.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options control logger construction.
type Options struct {
	// Dir is the log directory, created if missing.
	Dir string

	// Name is the base name of the log file, without extension.
	Name string

	// Debug lowers the level to debug and mirrors output to the console.
	Debug bool

	// MaxBackups is how many rotated files to keep. Zero means 7,
	// matching a week of daily activity.
	MaxBackups int
}

// New builds the root logger. Rotation is size-bounded (10 MB per file)
// with MaxBackups retained files; old rotations are aged out after 28
// days regardless.
func New(opts Options) (zerolog.Logger, error) {
	if opts.Name == "" {
		opts.Name = "edgeagent"
	}
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 7
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return zerolog.Nop(), err
	}

	fileOut := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, opts.Name+".log"),
		MaxSize:    10, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     28, // days
		Compress:   false,
	}

	var out io.Writer = fileOut
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
		console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		out = zerolog.MultiLevelWriter(fileOut, console)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, nil
}
