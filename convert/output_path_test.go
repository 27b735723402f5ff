package convert

import (
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"geocss/config"
	"geocss/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs, transliterate bool, format config.OutputFmt, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Conversion.FileNameTransliterate = transliterate
	cfg.Conversion.OutputNameTemplate = template

	return &state.LocalEnv{
		Log:    logger,
		Cfg:    cfg,
		NoDirs: noDirs,
		Format: format,
	}
}

func TestBuildOutputPath(t *testing.T) {
	st := setupTestStyle(t)

	tests := []struct {
		name          string
		noDirs        bool
		transliterate bool
		format        config.OutputFmt
		template      string
		src           string
		want          string
	}{
		{"no dirs", true, false, config.OutputFmtSld, "", "styles/base/roads.css", filepath.Join("/output", "roads.sld")},
		{"with dirs", false, false, config.OutputFmtSld, "", "styles/base/roads.css", filepath.Join("/output", "styles", "base", "roads.sld")},
		{"ysld", true, false, config.OutputFmtYsld, "", "roads.css", filepath.Join("/output", "roads.ysld")},
		{"bundle", true, false, config.OutputFmtBundle, "", "roads.css", filepath.Join("/output", "roads.zip")},
		{"transliterate", true, true, config.OutputFmtSld, "", "Дороги.css", filepath.Join("/output", "dorogi.sld")},
		{"no transliteration", true, false, config.OutputFmtSld, "", "Дороги.css", filepath.Join("/output", "Дороги.sld")},
		{"template", true, false, config.OutputFmtSld, "{{ .Style }}-{{ .Rules }}", "a.css", filepath.Join("/output", "roads-5.sld")},
		{"template with dirs", false, false, config.OutputFmtSld, "{{ .Style }}", "styles/a.css", filepath.Join("/output", "styles", "roads.sld")},
		{"template subdirectories", true, false, config.OutputFmtYsld, "{{ .Format }}/{{ .Name }}", "a.css", filepath.Join("/output", "ysld", "a.ysld")},
		{"template transliterated segments", true, true, config.OutputFmtSld, "Стили/{{ .Title }}", "a.css", filepath.Join("/output", "stili", "road-network.sld")},
		{"template cannot escape", true, false, config.OutputFmtSld, "../../{{ .Name }}", "a.css", filepath.Join("/output", "a.sld")},
		{"template without name", true, false, config.OutputFmtSld, "./..", "a.css", filepath.Join("/output", "_bad_file_name_.sld")},
		{"broken template falls back", true, false, config.OutputFmtSld, "{{ .Name", "a.css", filepath.Join("/output", "a.sld")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs, tt.transliterate, tt.format, tt.template)
			got := buildOutputPath(st, filepath.FromSlash(tt.src), "/output", env)
			if got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitAndCleanPath(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a" + sep + "b", []string{"a", "b"}},
		{sep + "a" + sep + sep + "b" + sep, []string{"a", "b"}},
		{".." + sep + "a" + sep + "." + sep + "b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := splitAndCleanPath(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("splitAndCleanPath(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLegendPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{filepath.Join("out", "roads.sld"), filepath.Join("out", "roads.png")},
		{filepath.Join("out", "roads.ysld"), filepath.Join("out", "roads.png")},
		{"roads", "roads.png"},
	}
	for _, tt := range tests {
		if got := legendPath(tt.in); got != tt.want {
			t.Errorf("legendPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
