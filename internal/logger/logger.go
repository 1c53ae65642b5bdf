package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id between the caller, the access log
// and every component log line of one request.
const RequestIDHeader = "X-Request-ID"

type Logger struct {
	*logrus.Entry
}

// New builds the service logger. Local environments get a colored console
// format; everything else logs JSON.
func New(environment, level string) *Logger {
	return NewWithOutput(environment, level, os.Stdout)
}

func NewWithOutput(environment, level string, out io.Writer) *Logger {
	base := logrus.New()

	if environment == "" || environment == "local" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			ForceColors:     true,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	base.SetOutput(out)
	base.SetLevel(parseLevel(level))

	return &Logger{Entry: logrus.NewEntry(base)}
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *Logger {
	return NewWithOutput("test", "error", io.Discard)
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// RequestID returns the caller's X-Request-ID or a fresh uuid.
func RequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// WithRequest attaches request metadata and returns an entry
func (l *Logger) WithRequest(r *http.Request) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"req_id":     RequestID(r),
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
}

func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithField("component", name)
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
