package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	usestorage "github.com/Hampfh/use-storage"
	"github.com/Hampfh/use-storage/internal/config"
	uslogrus "github.com/Hampfh/use-storage/log/logrus"
	usslog "github.com/Hampfh/use-storage/log/slog"
	uszap "github.com/Hampfh/use-storage/log/zap"
)

// newLoggers builds the engine logger selected by cfg.Logger plus the slog
// logger that backs event hooks. flush must run before exit.
func newLoggers(cfg config.Config, w io.Writer) (l usestorage.Logger, events *slog.Logger, flush func(), err error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	events = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	flush = func() {}

	switch cfg.Logger {
	case config.LoggerZap:
		zl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(w),
			zl,
		)
		z := zap.New(core)
		return uszap.New(z), events, func() { _ = z.Sync() }, nil
	case config.LoggerLogrus:
		ll, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
		}
		lr := logrus.New()
		lr.SetOutput(w)
		lr.SetLevel(ll)
		return uslogrus.New(lr), events, flush, nil
	case config.LoggerSlog:
		return usslog.New(events), events, flush, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown logger %q", cfg.Logger)
	}
}
