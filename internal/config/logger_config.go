package config

import (
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loggerPrefix = "LOGGER"

// NewLoggerConfig initializes a production zap config, overwritten by env
// vars under the LOGGER_ prefix if present.
func NewLoggerConfig() (*zap.Config, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	if err := envconfig.Process(loggerPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
