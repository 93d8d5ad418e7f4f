package main

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/meuqianimal/paywall/paywall"
	"golang.org/x/exp/slog"
)

func main() {
	logger := newLogger(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := paywall.LoadConfig(os.Getenv)
	if err != nil {
		logger.Error("loading config", "err", err)
		os.Exit(1)
	}

	app := paywall.NewApp(logger, cfg)
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal", slog.String("signal", sig.String()))

	app.Shutdown()
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
