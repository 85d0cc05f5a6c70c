package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. It is usable before Init with logrus defaults.
var Logger = logrus.New()

// Init configures the logger level and format ("text" or "json")
func Init(level, format string) error {
	return configure(Logger, level, format, os.Stderr)
}

// New builds a standalone logger, mostly for tests that want to capture output
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	if err := configure(l, level, format, out); err != nil {
		return nil, err
	}
	return l, nil
}

// Discard returns a logger that drops everything
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// For returns an entry tagged with the component name
func For(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

func configure(l *logrus.Logger, level, format string, out io.Writer) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	l.SetOutput(out)

	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q (use text or json)", format)
	}
	return nil
}
