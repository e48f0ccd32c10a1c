// Package logger builds the service's zap logger, optionally teeing JSON
// output to a rotated log file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/phambaophuc/alt-text-relay/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// New returns a development logger when cfg asks for one, a production
// logger otherwise. When cfg.Logging.File is set, entries are also written
// there with size-based rotation.
func New(cfg *config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	if cfg.Logging.File == "" {
		return logger, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.IsDevelopment() {
		level.SetLevel(zap.DebugLevel)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}),
		level,
	)

	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
