package logger

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Event names, used as the record message.
const (
	EventSpawn             = "job.spawn"
	EventSpawnFailed       = "job.spawn_failed"
	EventTableFull         = "job.table_full"
	EventStop              = "job.stop"
	EventTerminate         = "job.terminate"
	EventExit              = "job.exit"
	EventContinue          = "job.continue"
	EventForward           = "signal.forward"
	EventUnknownChild      = "child.unknown"
	EventSyntaxError       = "line.syntax_error"
	EventInvalidInvocation = "builtin.invalid_invocation"
)

// Attribute keys.
const (
	KeySession  = "session_id"
	KeyPID      = "pid"
	KeyJID      = "jid"
	KeySignal   = "signal"
	KeyExitCode = "exit_code"
	KeyCmdLine  = "cmdline"
	KeyProgram  = "program"
	KeyState    = "state"
	KeyError    = "error"
)

// Config holds the logger settings.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string
	// Format is text or json.
	Format string
}

// DefaultConfig is used when nothing is configured. New fills empty fields of
// its Config from it.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "text",
	}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// New creates a logger writing to w. Every record carries a fresh session ID
// so records from several shells can share one file.
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	defaults := DefaultConfig()
	if cfg.Level == "" {
		cfg.Level = defaults.Level
	}
	if cfg.Format == "" {
		cfg.Format = defaults.Format
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(handler).With(KeySession, uuid.NewString()), nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}
