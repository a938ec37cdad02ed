// Package main is the entry point for the avatar viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/app"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/config"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	opts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: true,
	}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if cfg.Backend.Empresa != "" {
		opts.Fields = map[string]string{"empresa": cfg.Backend.Empresa, "sede": cfg.Backend.Sede}
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Avatar Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a, err := app.New(cfg, logger.Component("app"))
	if err != nil {
		logger.Error("failed to start viewer", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
