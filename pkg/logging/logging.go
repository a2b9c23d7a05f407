// pkg/logging/logging.go
package logging

import (
	"fmt"
	"io"
	stdLog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// logWriter stores the current log writer globally
	logWriter io.Writer = stderrWriter()
)

// init keeps the CLI quiet until configuration is loaded.
func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

func stderrWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// Options selects the global log level, format and destination.
type Options struct {
	Level  string
	Format string // "text" (console) or "json"
	File   string // optional path; logs go to stderr when empty
}

// Configure applies Options to the global logger. When a log file is opened,
// the returned close function points logging back at stderr and closes the
// file; it may be called more than once.
func Configure(opts Options) (func() error, error) {
	noop := func() error { return nil }

	var (
		out  io.Writer = os.Stderr
		file *os.File
	)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return noop, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		out, file = f, f
	}
	fail := func(err error) (func() error, error) {
		if file != nil {
			_ = file.Close()
		}
		return noop, err
	}

	switch strings.ToLower(opts.Format) {
	case "json":
		SetLogWriter(out)
	case "", "text":
		SetLogWriter(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: file != nil})
	default:
		return fail(fmt.Errorf("unknown log format %q", opts.Format))
	}

	if err := ConfigureGlobalLogging(opts.Level); err != nil {
		SetLogWriter(stderrWriter())
		return fail(err)
	}
	if file == nil {
		return noop, nil
	}

	var (
		once     sync.Once
		closeErr error
	)
	return func() error {
		once.Do(func() {
			SetLogWriter(stderrWriter())
			_ = ConfigureGlobalLogging(opts.Level)
			closeErr = file.Close()
		})
		return closeErr
	}, nil
}

// ConfigureGlobalLogging rebuilds the global logger on the current writer.
// An empty level means "error".
func ConfigureGlobalLogging(levelStr string) error {
	level, err := parseLogLevel(levelStr)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	logContext := zerolog.New(logWriter).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}

	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	// net/http and friends report through the standard logger.
	stdLog.SetFlags(0)
	stdLog.SetOutput(stdLogWriter{logger: Component("stdlog")})

	return nil
}

// Component returns the global logger tagged with component. Loggers keep
// the writer and level in effect when they are created.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// SetLogWriter sets the writer used by the next ConfigureGlobalLogging.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

func parseLogLevel(levelString string) (zerolog.Level, error) {
	if levelString == "" {
		return zerolog.ErrorLevel, nil
	}
	name := strings.ToLower(levelString)
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.ErrorLevel, fmt.Errorf("invalid log level %q: %w", levelString, err)
	}
	return level, nil
}

// stdLogWriter turns standard library log lines into debug events.
type stdLogWriter struct {
	logger zerolog.Logger
}

func (w stdLogWriter) Write(p []byte) (int, error) {
	w.logger.Debug().Msg(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
