package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLoggingConfig_Prepare(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: filepath.Join(dir, "geocss.log"), Mode: "overwrite"},
	}

	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("hidden")
	log.Info("Stylesheet converted", zap.String("file", "roads.css"))
	_ = log.Sync()

	data, err := os.ReadFile(conf.FileLogger.Destination)
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "Stylesheet converted") || !strings.Contains(s, "roads.css") {
		t.Errorf("log does not contain message: %s", s)
	}
	if strings.Contains(s, "hidden") {
		t.Errorf("debug message in normal log: %s", s)
	}
}

func TestLoggingConfig_PrepareNone(t *testing.T) {
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if log.Core().Enabled(zap.ErrorLevel) {
		t.Error("logger without destinations is enabled")
	}
}
