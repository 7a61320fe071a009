// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel overrides the log level when set.
const EnvLevel = "GRADEVAL_LOG_LEVEL"

// Config selects the logger level and encoding.
type Config struct {
	Level zapcore.Level
	// Console switches from JSON to the human-readable encoder.
	Console bool
}

// DefaultConfig logs warnings and above as JSON.
func DefaultConfig() Config {
	return Config{Level: zapcore.WarnLevel}
}

// ConfigFromEnv applies EnvLevel on top of DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv(EnvLevel)); v != "" {
		lvl, err := zapcore.ParseLevel(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLevel, err)
		}
		cfg.Level = lvl
	}
	return cfg, nil
}

// New builds a production logger writing to stderr.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level)
	zc.OutputPaths = []string{"stderr"}
	if cfg.Console {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
