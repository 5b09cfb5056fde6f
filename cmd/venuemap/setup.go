package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/venuemap/explorer/internal/config"
	"github.com/venuemap/explorer/internal/logging"
	intOtel "github.com/venuemap/explorer/internal/otel"
)

var shutdownOnce sync.Once

// setup loads config and brings up logging and telemetry. Until the log file
// is open, records go to stdout, except for the panel which owns the
// terminal.
func setup(dir, command string) error {
	sessionID := uuid.NewString()

	SlogManager = logging.NewSlogManager()
	SlogManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", sessionID),
			slog.String("command", command),
		}
	})

	var early io.Writer
	if command == "panel" {
		early = io.Discard
	}
	SlogManager.Setup(early, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(dir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", dir)
	}
	level := config.GetString("logLevel")

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	// keep the previous log of the same second
	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("failed to create/open log file %s: %w", LogFilePath, err)
	}

	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    LogFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.NewGraylogHandler(gl.Address, level)
		if err != nil {
			Logger.Warn("Failed to connect to Graylog, continuing without it", "address", gl.Address, "error", err)
		} else {
			extra = append(extra, h)
			graylogCloser = closer
		}
	}

	SlogManager.Setup(LogFile, level, OTelProvider.LoggerProvider(), extra...)
	Logger = SlogManager.Logger()
	Logger.Info("Starting up", "version", CurrentVersion, "built", BuildDate, "log", LogFilePath)
	return nil
}

// shutdown flushes telemetry and closes log sinks. It is safe to call more
// than once.
func shutdown() {
	shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Logger.Info("Shutting down")
		if err := SlogManager.Flush(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "log flush failed: %v\n", err)
		}
		if OTelProvider != nil {
			if err := OTelProvider.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "otel shutdown failed: %v\n", err)
			}
		}
		if graylogCloser != nil {
			_ = graylogCloser.Close()
		}
		if LogFile != nil {
			_ = LogFile.Close()
		}
	})
}
