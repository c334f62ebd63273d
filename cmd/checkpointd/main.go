// Package main is the entry point for checkpointd, the checkpoint wait-time logger.
// Its sole responsibility is wiring dependencies together and running the
// selected command. No journey logic belongs here.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/jbelval/wait-time-logger/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "checkpointd",
		Usage: "record badge journeys reported by checkpoint scanners over UDP",
		Commands: []*cli.Command{
			listenCommand(),
			replayCommand(),
			migrateCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("checkpointd failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and installs the JSON logger as the
// slog default.
func bootstrap() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}
