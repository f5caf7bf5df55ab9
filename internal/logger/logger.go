package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config controls where logs go
type Config struct {
	Name    string // file name prefix
	Dir     string // empty disables the file
	Level   string
	Console bool
	Output  io.Writer // console destination, defaults to stdout
	now     func() time.Time
}

// Logger is a zerolog logger plus the file it writes to
type Logger struct {
	zerolog.Logger
	file *os.File
	Path string
}

// New builds a logger writing to the console and a daily file
// <dir>/<name>_<date>.log.
func New(cfg Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if cfg.Name == "" {
		cfg.Name = "orchestrator"
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	var writers []io.Writer
	if cfg.Console {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"})
	}

	l := &Logger{}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		filename := fmt.Sprintf("%s_%s.log", cfg.Name, cfg.now().Format("2006-01-02"))
		l.Path = filepath.Join(cfg.Dir, filename)

		file, err := os.OpenFile(l.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		writers = append(writers, file)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	l.Logger = zerolog.New(out).Level(level).With().Timestamp().Str("service", cfg.Name).Logger()
	return l, nil
}

// Component returns a child logger tagged with component
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
