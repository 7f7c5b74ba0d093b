package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/sassdata/pkg/config"
	"github.com/openfroyo/sassdata/pkg/importer"
	"github.com/openfroyo/sassdata/pkg/loader"
	"github.com/openfroyo/sassdata/pkg/oracle"
	"github.com/openfroyo/sassdata/pkg/telemetry"
)

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"include_paths":     "include-path",
	"theme_file":        "theme",
	"theme_names":       "theme-name",
	"sass.binary":       "sass-binary",
	"sass.output_style": "style",
}

// oracleFactory starts the oracle used by commands that emit declarations
// without compiling. Tests replace it to avoid the Dart Sass binary.
var oracleFactory = func(cfg *config.Config, tel *telemetry.Telemetry, logger zerolog.Logger) (oracle.Oracle, func() error, error) {
	ds, err := oracle.NewDartSass(oracle.DartSassOptions{
		Binary:  cfg.Sass.Binary,
		Timeout: cfg.Sass.Timeout,
		Logger:  logger,
		Metrics: tel.Metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	return oracle.NewMemo(ds, tel.Metrics), ds.Close, nil
}

// rootOptions holds global flags and the state built from them before a
// command runs.
type rootOptions struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger zerolog.Logger
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sassdata",
		Short: "Import data files into Sass",
		Long: `sassdata turns data files into Sass variable declarations.

Supported formats: JSON, JSON5, YAML, TOML, CUE, HCL and Starlark.

A data file named like a theme ("theme" by default) becomes the current
theme. Every other file is merged with the theme's override for its module
and emitted together with the theme and its global variables.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.tel == nil {
				return nil
			}
			return opts.tel.Shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, toml, json or cue)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringSliceP("include-path", "I", nil, "additional directory to search for data files")
	flags.String("theme", "", "theme file to install before importing")
	flags.StringSlice("theme-name", nil, "file name treated as a theme (default \"theme\")")
	flags.String("sass-binary", "", "Dart Sass executable (default \"sass\" on PATH)")

	rootCmd.AddCommand(newEmitCommand(opts))
	rootCmd.AddCommand(newResolveCommand(opts))
	rootCmd.AddCommand(newCompileCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newProbeCommand(opts))

	return rootCmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	bindings := make(map[string]string, len(flagBindings))
	for key, name := range flagBindings {
		if cmd.Flags().Lookup(name) != nil {
			bindings[key] = name
		}
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: o.configPath,
		Flags:      cmd.Flags(),
		Bindings:   bindings,
	})
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Telemetry.Logging.Level = "debug"
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	o.cfg = cfg
	o.tel = tel
	o.logger = tel.Logger.Zerolog()
	cmd.SetContext(tel.WithContext(cmd.Context()))

	o.logger.Debug().
		Str("config", o.configPath).
		Strs("include_paths", cfg.IncludePaths).
		Strs("theme_names", cfg.ThemeNames).
		Msg("Configuration loaded")
	return nil
}

// newImporter starts an oracle and returns an importer for one session
// along with a function releasing the oracle.
func (o *rootOptions) newImporter(ctx context.Context) (*importer.Importer, func(), error) {
	orc, closeOracle, err := oracleFactory(o.cfg, o.tel, o.componentLogger("oracle"))
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := closeOracle(); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to stop oracle")
		}
	}

	logger := o.componentLogger("importer")
	im := importer.New(importer.Options{
		IncludePaths: o.cfg.IncludePaths,
		ThemeNames:   o.cfg.ThemeNames,
		Oracle:       orc,
		Loader: loader.New(loader.Options{
			Logger:          logger,
			Metrics:         o.tel.Metrics,
			Tracer:          o.tel.Tracer,
			StarlarkTimeout: o.cfg.Starlark.Timeout,
		}),
		Logger:  logger,
		Metrics: o.tel.Metrics,
		Tracer:  o.tel.Tracer,
	})

	if o.cfg.ThemeFile != "" {
		if err := im.LoadTheme(ctx, o.cfg.ThemeFile); err != nil {
			release()
			return nil, nil, err
		}
	}
	return im, release, nil
}

func (o *rootOptions) compilerOptions() importer.CompilerOptions {
	return importer.CompilerOptions{
		Binary:          o.cfg.Sass.Binary,
		Timeout:         o.cfg.Sass.Timeout,
		OutputStyle:     o.cfg.Sass.OutputStyle,
		IncludePaths:    o.cfg.IncludePaths,
		ThemeNames:      o.cfg.ThemeNames,
		ThemeFile:       o.cfg.ThemeFile,
		StarlarkTimeout: o.cfg.Starlark.Timeout,
		Logger:          o.componentLogger("compiler"),
		Metrics:         o.tel.Metrics,
		Tracer:          o.tel.Tracer,
	}
}

func (o *rootOptions) componentLogger(component string) zerolog.Logger {
	return o.tel.Logger.NewComponentLogger(component).Zerolog()
}
