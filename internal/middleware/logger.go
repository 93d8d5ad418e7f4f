package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

// NewStructuredLogger logs one line per request through logger.
func NewStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return chimw.RequestLogger(&StructuredLogger{Logger: logger})
}

type StructuredLogger struct {
	Logger *slog.Logger
}

func (l *StructuredLogger) NewLogEntry(r *http.Request) chimw.LogEntry {
	logger := l.Logger.With(
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
	if id := RequestIDFromContext(r.Context()); id != "" {
		logger = logger.With(slog.String("request_id", id))
	}
	return &StructuredLoggerEntry{Logger: logger}
}

type StructuredLoggerEntry struct {
	Logger *slog.Logger
}

func (e *StructuredLoggerEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.Logger.Info("request complete",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)
}

func (e *StructuredLoggerEntry) Panic(v interface{}, stack []byte) {
	e.Logger.Error("request panic", slog.Any("panic", v), slog.String("stack", string(stack)))
}

// Logger returns the request-scoped logger set up by NewStructuredLogger, or
// fallback when the request was not routed through it.
func Logger(r *http.Request, fallback *slog.Logger) *slog.Logger {
	if entry, ok := chimw.GetLogEntry(r).(*StructuredLoggerEntry); ok && entry != nil {
		return entry.Logger
	}
	return fallback
}
