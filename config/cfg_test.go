package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	conv := cfg.Conversion
	if conv.MaxCombinations != 10000 {
		t.Errorf("MaxCombinations = %d, want 10000", conv.MaxCombinations)
	}
	if conv.DefaultMIME != "image/png" {
		t.Errorf("DefaultMIME = %q", conv.DefaultMIME)
	}
	if conv.OutputNameTemplate != "" {
		t.Errorf("OutputNameTemplate = %q, want empty", conv.OutputNameTemplate)
	}

	res := cfg.Resources
	if res.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", res.Timeout)
	}
	if res.MaxSize != 10<<20 {
		t.Errorf("MaxSize = %d", res.MaxSize)
	}
	if res.Cache.Path != "" || res.Cache.TTL != 24*time.Hour {
		t.Errorf("Cache = %+v", res.Cache)
	}

	if cfg.Legend.IconSize != 16 || cfg.Legend.Width != 240 {
		t.Errorf("Legend = %+v", cfg.Legend)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("console level = %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `version: 1
conversion:
  max_combinations: 500
  output_name_template: "{{ .Name | lower }}-{{ .Format }}"
  force_charset: windows-1251
resources:
  timeout: 5s
  user: alice
  password: wonderland
  sniff: true
  cache:
    path: `+filepath.Join(tmpDir, "cache", "resources.db")+`
    ttl: 1h
legend:
  icon_size: 24
  width: 320
  font_colour: "#333333"
  grayscale: true
logging:
  console:
    level: normal
  file:
    level: debug
    destination: `+filepath.Join(tmpDir, "test.log")+`
    mode: append
`)

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Conversion.MaxCombinations != 500 {
		t.Errorf("MaxCombinations = %d, want 500", cfg.Conversion.MaxCombinations)
	}
	// template field is kept as is
	if cfg.Conversion.OutputNameTemplate != "{{ .Name | lower }}-{{ .Format }}" {
		t.Errorf("OutputNameTemplate = %q", cfg.Conversion.OutputNameTemplate)
	}
	if cfg.Conversion.ForceCharset != "windows-1251" {
		t.Errorf("ForceCharset = %q", cfg.Conversion.ForceCharset)
	}
	// value not in file comes from defaults
	if cfg.Conversion.DefaultMIME != "image/png" {
		t.Errorf("DefaultMIME = %q", cfg.Conversion.DefaultMIME)
	}
	if cfg.Resources.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Resources.Timeout)
	}
	if cfg.Resources.Password.Reveal() != "wonderland" {
		t.Errorf("Password was not loaded")
	}
	if !cfg.Resources.Sniff {
		t.Error("Expected Sniff to be true")
	}
	if cfg.Resources.Cache.TTL != time.Hour {
		t.Errorf("Cache TTL = %v", cfg.Resources.Cache.TTL)
	}
	// sanitizer makes sure cache directory exists
	if _, err := os.Stat(filepath.Join(tmpDir, "cache")); err != nil {
		t.Errorf("cache directory was not created: %v", err)
	}
	if cfg.Legend.IconSize != 24 || !cfg.Legend.Grayscale {
		t.Errorf("Legend = %+v", cfg.Legend)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\nconversion:\n  max_combinations: 1\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"unknown nested field", "version: 1\nlegend:\n  colour: red\n"},
		{"version", "version: 2\n"},
		{"max combinations", "version: 1\nconversion:\n  max_combinations: 0\n"},
		{"icon size", "version: 1\nlegend:\n  icon_size: 2\n"},
		{"colour", "version: 1\nlegend:\n  font_colour: black\n"},
		{"user without password", "version: 1\nresources:\n  user: alice\n"},
		{"log level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}
	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if _, err := unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Resources.User = "alice"
	cfg.Resources.Password = "wonderland"

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if strings.Contains(string(data), "wonderland") {
		t.Error("Dump() exposes password")
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Resources.Timeout != cfg.Resources.Timeout {
		t.Errorf("Timeout mismatch after dump/load: got %v, want %v", cfg2.Resources.Timeout, cfg.Resources.Timeout)
	}
	if cfg2.Conversion.MaxCombinations != cfg.Conversion.MaxCombinations {
		t.Errorf("MaxCombinations mismatch after dump/load")
	}
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	_, err := unmarshalConfig([]byte("version: 99\n"), &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}

func TestOutputFmt(t *testing.T) {
	tests := []struct {
		name string
		fmt  OutputFmt
		ext  string
	}{
		{"sld", OutputFmtSld, ".sld"},
		{"ysld", OutputFmtYsld, ".ysld"},
		{"bundle", OutputFmtBundle, ".zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fmt.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.fmt.Ext(); got != tt.ext {
				t.Errorf("Ext() = %q, want %q", got, tt.ext)
			}
			parsed, err := ParseOutputFmt(strings.ToUpper(tt.name))
			if err != nil || parsed != tt.fmt {
				t.Errorf("ParseOutputFmt() = %v, %v", parsed, err)
			}
			var u OutputFmt
			if err := u.UnmarshalText([]byte(tt.name)); err != nil || u != tt.fmt {
				t.Errorf("UnmarshalText() = %v, %v", u, err)
			}
		})
	}

	if _, err := ParseOutputFmt("kml"); !errors.Is(err, ErrInvalidOutputFmt) {
		t.Errorf("ParseOutputFmt(kml) error = %v", err)
	}
	if OutputFmt(99).IsValid() {
		t.Error("OutputFmt(99) is valid")
	}
	if got := OutputFmtNames(); strings.Join(got, ",") != "sld,ysld,bundle" {
		t.Errorf("OutputFmtNames() = %v", got)
	}
	if !OutputFmtBundle.Packaged() || OutputFmtSld.Packaged() {
		t.Error("Packaged() mismatch")
	}
}

func TestOutputFmt_Ext_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Ext() should panic for invalid format")
		}
	}()
	OutputFmt(99).Ext()
}
