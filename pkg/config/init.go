package config

import (
	"fmt"

	"github.com/arkvault/userstore/pkg/logger"
)

// Initialize loads configuration and builds the application logger
func Initialize() (*Config, *logger.Logger, error) {
	cfg, err := Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerCfg := logger.Config{
		Level:       logger.ParseLevel(cfg.Log.Level),
		Environment: cfg.Log.Environment,
		Encoding:    cfg.Log.Encoding,
	}

	appLogger, err := logger.New(loggerCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	appLogger.WithField("environment", cfg.Server.Environment).
		WithField("server_port", cfg.Server.Port).
		WithField("log_level", cfg.Log.Level).
		Info("Configuration and logger initialized")

	return cfg, appLogger, nil
}
