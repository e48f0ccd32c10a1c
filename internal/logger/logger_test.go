package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phambaophuc/alt-text-relay/internal/config"
)

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "relay.log")
	cfg := &config.Config{Logging: config.LoggingConfig{
		Environment: "production",
		File:        path,
		MaxSizeMB:   1,
		MaxBackups:  1,
		MaxAgeDays:  1,
	}}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	logger.Info("batch processed")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "batch processed") {
		t.Errorf("Expected log entry in file, got %q", data)
	}
}

func TestNewWithoutFile(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			logger, err := New(&config.Config{Logging: config.LoggingConfig{Environment: env}})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("Expected logger")
			}
		})
	}
}
