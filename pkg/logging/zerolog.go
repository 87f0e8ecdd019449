package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
)

// Config configures a Zerolog logger
type Config struct {
	// Level is the minimum level written
	Level Level

	// ConsoleLevel raises the console threshold above Level, so a log file
	// can record more than the terminal shows
	ConsoleLevel Level

	// Format selects console-style text or JSON lines
	Format Format

	// Console receives log output, usually os.Stderr. Nil disables it.
	Console io.Writer

	// NoColor disables ANSI colors in text output
	NoColor bool

	// File is an optional log file path
	File string

	// MaxSize is the log file size in bytes that triggers rotation
	MaxSize int64

	// MaxBackups is the number of rotated files kept
	MaxBackups int
}

// DefaultLogPath returns the log file used when file logging is enabled
// without an explicit path
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "rdt", "rdt.log")
}

// Zerolog implements Logger on top of zerolog
type Zerolog struct {
	logger zerolog.Logger
	file   *RotatingFile
}

// New creates a zerolog-backed logger writing to the console and/or a file
func New(cfg Config) (*Zerolog, error) {
	var writers []io.Writer
	if cfg.Console != nil {
		console := formatWriter(cfg.Console, cfg.Format, cfg.NoColor)
		if cfg.ConsoleLevel > cfg.Level {
			console = &zerolog.FilteredLevelWriter{
				Writer: zerolog.LevelWriterAdapter{Writer: console},
				Level:  zerologLevel(cfg.ConsoleLevel),
			}
		}
		writers = append(writers, console)
	}

	var file *RotatingFile
	if cfg.File != "" {
		var err error
		file, err = OpenRotatingFile(cfg.File, cfg.MaxSize, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		// Files never get colors
		writers = append(writers, formatWriter(file, cfg.Format, true))
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).Level(zerologLevel(cfg.Level)).With().Timestamp().Logger()
	return &Zerolog{logger: logger, file: file}, nil
}

// NewConsole is a text logger on stderr at the given level
func NewConsole(level Level) *Zerolog {
	z, _ := New(Config{Level: level, Format: FormatText, Console: os.Stderr})
	return z
}

func formatWriter(w io.Writer, format Format, noColor bool) io.Writer {
	if format == FormatJSON {
		return w
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message
func (z *Zerolog) Debug(ctx context.Context, msg string, fields Fields) {
	z.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Info logs an info message
func (z *Zerolog) Info(ctx context.Context, msg string, fields Fields) {
	z.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Warn logs a warning message
func (z *Zerolog) Warn(ctx context.Context, msg string, fields Fields) {
	z.logger.Warn().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Error logs an error message
func (z *Zerolog) Error(ctx context.Context, msg string, err error, fields Fields) {
	z.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

// WithFields returns a logger with additional fields. It shares the
// underlying file, so only the root logger should be closed.
func (z *Zerolog) WithFields(fields Fields) Logger {
	return &Zerolog{
		logger: z.logger.With().Fields(map[string]interface{}(fields)).Logger(),
		file:   z.file,
	}
}

// Close closes the log file, if any
func (z *Zerolog) Close() error {
	if z.file != nil {
		return z.file.Close()
	}
	return nil
}
