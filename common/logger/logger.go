// Package logger builds the zap loggers used by every floodwatch binary.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger.
// level: any zapcore level name; unknown values mean "info".
// format: "console" for human-readable output, anything else is JSON on stdout.
// serviceName and the hostname are attached to every entry.
func NewLogger(level string, format string, serviceName string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	fields := map[string]interface{}{}
	if serviceName != "" {
		fields["service_name"] = serviceName
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		fields["hostname"] = hostname
	}
	cfg.InitialFields = fields

	return cfg.Build()
}
