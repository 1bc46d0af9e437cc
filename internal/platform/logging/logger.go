package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/correlation"
)

// Logger is the process-wide logger, set by InitLogger.
var Logger *slog.Logger

// InitLogger installs a stdout logger as the slog default.
// level: debug, info, warn, error (anything else means info).
// format: json or text (anything else means text).
func InitLogger(level, format string) {
	Logger = New(os.Stdout, level, format)
	slog.SetDefault(Logger)
}

// New builds a correlation-aware logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(correlation.NewHandler(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
