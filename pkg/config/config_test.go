package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if diff := cmp.Diff(want.ThemeNames, cfg.ThemeNames); diff != "" {
		t.Errorf("ThemeNames mismatch (-want +got):\n%s", diff)
	}
	if cfg.Sass != want.Sass {
		t.Errorf("Sass = %+v, want %+v", cfg.Sass, want.Sass)
	}
	if cfg.Starlark.Timeout != 30*time.Second {
		t.Errorf("Starlark.Timeout = %v", cfg.Starlark.Timeout)
	}
	if cfg.Telemetry.ServiceName != "sassdata" || cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("telemetry defaults not applied: %+v", cfg.Telemetry)
	}
	if len(cfg.IncludePaths) != 0 {
		t.Errorf("IncludePaths = %v, want none", cfg.IncludePaths)
	}
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "sassdata.yaml",
			content: `include_paths: [styles, vendor]
theme_names: [tokens]
sass:
  output_style: compressed
  timeout: 45s
`,
		},
		{
			name: "toml",
			file: "sassdata.toml",
			content: `include_paths = ["styles", "vendor"]
theme_names = ["tokens"]

[sass]
output_style = "compressed"
timeout = "45s"
`,
		},
		{
			name: "json",
			file: "sassdata.json",
			content: `{"include_paths": ["styles", "vendor"], "theme_names": ["tokens"],
"sass": {"output_style": "compressed", "timeout": "45s"}}`,
		},
		{
			name: "cue",
			file: "sassdata.cue",
			content: `include_paths: ["styles", "vendor"]
theme_names: ["tokens"]
sass: {
	output_style: "compressed"
	timeout:      "45s"
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(LoadOptions{ConfigFile: writeConfig(t, tt.file, tt.content)})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if diff := cmp.Diff([]string{"styles", "vendor"}, cfg.IncludePaths); diff != "" {
				t.Errorf("IncludePaths mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"tokens"}, cfg.ThemeNames); diff != "" {
				t.Errorf("ThemeNames mismatch (-want +got):\n%s", diff)
			}
			if cfg.Sass.OutputStyle != "compressed" || cfg.Sass.Timeout != 45*time.Second {
				t.Errorf("Sass = %+v", cfg.Sass)
			}
			if cfg.Starlark.Timeout != 30*time.Second {
				t.Errorf("unset key lost its default: %v", cfg.Starlark.Timeout)
			}
		})
	}
}

func TestLoad_CUESchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
	}{
		{"bad output style", `sass: output_style: "nested"`, "sass.output_style"},
		{"unknown key", `colour: "red"`, "colour"},
		{"bad duration", `starlark: timeout: "soon"`, "starlark.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "sassdata.cue", tt.content)
			_, err := Load(LoadOptions{ConfigFile: path})

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Load() error = %v, want ValidationErrors", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Path == tt.path || strings.Contains(ve.Message, tt.path) {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for %s in %v", tt.path, verrs)
			}
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	path := writeConfig(t, "sassdata.yaml", "sass:\n  output_style: nested\n")
	_, err := Load(LoadOptions{ConfigFile: path})
	if err == nil || !strings.Contains(err.Error(), "OutputStyle") {
		t.Errorf("Load() error = %v, want OutputStyle validation failure", err)
	}

	path = writeConfig(t, "sassdata.yaml", "theme_names: []\n")
	if _, err := Load(LoadOptions{ConfigFile: path}); err == nil {
		t.Error("expected error for empty theme_names")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "sassdata.yaml", `theme_file: file-theme.json
sass:
  binary: /opt/file/sass
  output_style: compressed
`)
	sep := string(os.PathListSeparator)
	t.Setenv("SASSDATA_SASS_OUTPUT_STYLE", "expanded")
	t.Setenv("SASSDATA_INCLUDE_PATHS", "env-a"+sep+"env-b")
	t.Setenv("SASSDATA_THEME_FILE", "env-theme.json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("sass-binary", "", "")
	flags.String("theme", "", "")
	if err := flags.Parse([]string{"--theme", "flag-theme.json"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		ConfigFile: path,
		Flags:      flags,
		Bindings: map[string]string{
			"sass.binary": "sass-binary",
			"theme_file":  "theme",
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ThemeFile != "flag-theme.json" {
		t.Errorf("ThemeFile = %q, flag should win", cfg.ThemeFile)
	}
	if cfg.Sass.OutputStyle != "expanded" {
		t.Errorf("OutputStyle = %q, env should beat file", cfg.Sass.OutputStyle)
	}
	if cfg.Sass.Binary != "/opt/file/sass" {
		t.Errorf("Binary = %q, unset flag should not override file", cfg.Sass.Binary)
	}
	if diff := cmp.Diff([]string{"env-a", "env-b"}, cfg.IncludePaths); diff != "" {
		t.Errorf("IncludePaths mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_UnknownFlagBinding(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	_, err := Load(LoadOptions{Flags: flags, Bindings: map[string]string{"theme_file": "theme"}})
	if err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestSplitIncludePaths(t *testing.T) {
	sep := string(os.PathListSeparator)

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"none", nil, nil},
		{"separate", []string{"a", "b"}, []string{"a", "b"}},
		{"joined", []string{"a" + sep + "b"}, []string{"a", "b"}},
		{"mixed with empties", []string{"a" + sep + sep + "b", "", " c "}, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitIncludePaths(tt.in...)); diff != "" {
				t.Errorf("SplitIncludePaths() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
