package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openfroyo/sassdata/pkg/telemetry"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SASSDATA"

// Config is the sassdata configuration.
type Config struct {
	// IncludePaths are searched for data files after the importing file's
	// directory.
	IncludePaths []string `mapstructure:"include_paths"`

	// ThemeNames are the extensionless file names treated as themes.
	ThemeNames []string `mapstructure:"theme_names" validate:"min=1,dive,required"`

	// ThemeFile is installed as the current theme before each build.
	ThemeFile string `mapstructure:"theme_file"`

	Sass      SassConfig       `mapstructure:"sass"`
	Starlark  StarlarkConfig   `mapstructure:"starlark"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// SassConfig configures the Dart Sass processes.
type SassConfig struct {
	// Binary is the Dart Sass executable; empty means "sass" on PATH.
	Binary string `mapstructure:"binary"`

	// Timeout bounds each compilation and each oracle probe.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// OutputStyle is the CSS output style.
	OutputStyle string `mapstructure:"output_style" validate:"oneof=expanded compressed"`
}

// StarlarkConfig configures Starlark data files.
type StarlarkConfig struct {
	// Timeout bounds module execution and each deferred call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ThemeNames: []string{"theme"},
		Sass: SassConfig{
			Timeout:     30 * time.Second,
			OutputStyle: "expanded",
		},
		Starlark: StarlarkConfig{
			Timeout: 30 * time.Second,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// LoadOptions controls where Load reads settings from.
type LoadOptions struct {
	// ConfigFile is an optional YAML, TOML, JSON or CUE file.
	ConfigFile string

	// Flags holds command line flags; Bindings maps config keys to the
	// names of flags that override them when set.
	Flags    *pflag.FlagSet
	Bindings map[string]string
}

// Load builds the configuration from defaults, the config file, the
// environment and flags, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		if err := readConfigFile(v, opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	if opts.Flags != nil {
		for key, name := range opts.Bindings {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("unknown flag %q bound to %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.IncludePaths = SplitIncludePaths(cfg.IncludePaths...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not found: %s", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		settings, err := loadCUE(path)
		if err != nil {
			return err
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return fmt.Errorf("failed to merge config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SplitIncludePaths flattens include paths, splitting entries that hold
// several paths joined with os.PathListSeparator. Empty entries are dropped.
func SplitIncludePaths(paths ...string) []string {
	var out []string
	for _, p := range paths {
		for _, part := range strings.Split(p, string(os.PathListSeparator)) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("include_paths", append([]string{}, d.IncludePaths...))
	v.SetDefault("theme_names", d.ThemeNames)
	v.SetDefault("theme_file", d.ThemeFile)

	v.SetDefault("sass.binary", d.Sass.Binary)
	v.SetDefault("sass.timeout", d.Sass.Timeout)
	v.SetDefault("sass.output_style", d.Sass.OutputStyle)
	v.SetDefault("starlark.timeout", d.Starlark.Timeout)

	t := d.Telemetry
	v.SetDefault("telemetry.service_name", t.ServiceName)
	v.SetDefault("telemetry.service_version", t.ServiceVersion)
	v.SetDefault("telemetry.environment", t.Environment)
	v.SetDefault("telemetry.logging.level", t.Logging.Level)
	v.SetDefault("telemetry.logging.format", t.Logging.Format)
	v.SetDefault("telemetry.logging.output", t.Logging.Output)
	v.SetDefault("telemetry.logging.enable_caller", t.Logging.EnableCaller)
	v.SetDefault("telemetry.logging.time_format", t.Logging.TimeFormat)
	v.SetDefault("telemetry.tracing.enabled", t.Tracing.Enabled)
	v.SetDefault("telemetry.tracing.exporter", t.Tracing.Exporter)
	v.SetDefault("telemetry.tracing.endpoint", t.Tracing.Endpoint)
	v.SetDefault("telemetry.tracing.sampling_rate", t.Tracing.SamplingRate)
	v.SetDefault("telemetry.tracing.max_export_batch_size", t.Tracing.MaxExportBatchSize)
	v.SetDefault("telemetry.tracing.export_timeout", t.Tracing.ExportTimeout)
	v.SetDefault("telemetry.tracing.insecure", t.Tracing.Insecure)
	v.SetDefault("telemetry.metrics.enabled", t.Metrics.Enabled)
	v.SetDefault("telemetry.metrics.listen_address", t.Metrics.ListenAddress)
	v.SetDefault("telemetry.metrics.path", t.Metrics.Path)
	v.SetDefault("telemetry.metrics.namespace", t.Metrics.Namespace)
	v.SetDefault("telemetry.metrics.buckets", t.Metrics.DefaultHistogramBuckets)
}
