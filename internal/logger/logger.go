package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func New() *logrus.Logger {
	return NewWithOutput(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithOutput builds the JSON logger used by the server. Unknown levels fall
// back to info.
func NewWithOutput(w io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// Discard returns a logger that drops everything. Handy for tests.
func Discard() *logrus.Logger {
	return NewWithOutput(io.Discard, "error")
}
