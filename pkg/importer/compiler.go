package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/godartsass/v2"
	"github.com/rs/zerolog"

	"github.com/openfroyo/sassdata/pkg/loader"
	"github.com/openfroyo/sassdata/pkg/oracle"
	"github.com/openfroyo/sassdata/pkg/telemetry"
	"github.com/openfroyo/sassdata/pkg/theme"
)

// CompilerOptions configures a Compiler.
type CompilerOptions struct {
	// Binary is the Dart Sass executable; empty means "sass" on PATH.
	Binary string

	// Timeout bounds each compilation and each oracle probe.
	Timeout time.Duration

	// OutputStyle is "expanded" or "compressed".
	OutputStyle string

	IncludePaths []string
	ThemeNames   []string

	// ThemeFile, when set, is installed before every compilation.
	ThemeFile string

	StarlarkTimeout time.Duration

	// Oracle overrides the probing transpiler.
	Oracle oracle.Oracle

	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// CompileResult is the output of one compilation.
type CompileResult struct {
	CSS       string
	SessionID string

	// Dependencies are the data files the loader has read, sorted.
	Dependencies []string
}

// Compiler compiles stylesheets with the data importer installed. Each
// compilation runs in a fresh build session.
type Compiler struct {
	opts       CompilerOptions
	transpiler *godartsass.Transpiler
	probe      *oracle.DartSass
	oracle     oracle.Oracle
	loader     *loader.Loader
	logger     zerolog.Logger
}

// NewCompiler starts the Dart Sass processes used for rendering and, unless
// an oracle is given, for probing.
func NewCompiler(opts CompilerOptions) (*Compiler, error) {
	logger := opts.Logger.With().Str("component", "compiler").Logger()

	transpiler, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: opts.Binary,
		Timeout:                  opts.Timeout,
		Stderr:                   io.Discard,
		LogEventHandler: func(e godartsass.LogEvent) {
			if e.Type == godartsass.LogEventTypeDebug {
				logger.Debug().Msg(e.Message)
				return
			}
			logger.Warn().Str("deprecation", e.DeprecationType).Msg(e.Message)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start dart sass: %w", err)
	}

	c := &Compiler{
		opts:       opts,
		transpiler: transpiler,
		oracle:     opts.Oracle,
		logger:     logger,
		loader: loader.New(loader.Options{
			Logger:          opts.Logger,
			Metrics:         opts.Metrics,
			Tracer:          opts.Tracer,
			StarlarkTimeout: opts.StarlarkTimeout,
		}),
	}

	if c.oracle == nil {
		probe, err := oracle.NewDartSass(oracle.DartSassOptions{
			Binary:  opts.Binary,
			Timeout: opts.Timeout,
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		})
		if err != nil {
			_ = transpiler.Close()
			return nil, err
		}
		c.probe = probe
		c.oracle = oracle.NewMemo(probe, opts.Metrics)
	}

	return c, nil
}

// Loader returns the loader shared by every compilation.
func (c *Compiler) Loader() *loader.Loader {
	return c.loader
}

// Oracle returns the oracle used for quoting decisions.
func (c *Compiler) Oracle() oracle.Oracle {
	return c.oracle
}

// NewImporter returns an importer for a fresh build session.
func (c *Compiler) NewImporter() *Importer {
	return New(Options{
		IncludePaths: c.opts.IncludePaths,
		ThemeNames:   c.opts.ThemeNames,
		Oracle:       c.oracle,
		Loader:       c.loader,
		Session:      theme.NewSession(),
		Logger:       c.opts.Logger,
		Metrics:      c.opts.Metrics,
		Tracer:       c.opts.Tracer,
	})
}

// Compile renders the stylesheet at entry.
func (c *Compiler) Compile(ctx context.Context, entry string) (*CompileResult, error) {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry %s: %w", entry, err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}

	im := c.NewImporter()
	ctx, span := c.opts.Tracer.StartCompileSpan(ctx, abs, im.Session().ID())
	defer span.End()

	if c.opts.ThemeFile != "" {
		if err := im.LoadTheme(ctx, c.opts.ThemeFile); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load theme: %w", err)
		}
	}

	timer := telemetry.NewTimer()
	res, err := c.transpiler.Execute(godartsass.Args{
		Source:         string(src),
		URL:            fileScheme + filepath.ToSlash(abs),
		SourceSyntax:   sourceSyntax(abs),
		OutputStyle:    godartsass.ParseOutputStyle(c.opts.OutputStyle),
		ImportResolver: im.Resolver(ctx, abs),
		IncludePaths:   append([]string{filepath.Dir(abs)}, c.opts.IncludePaths...),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to compile %s: %w", entry, err)
	}
	telemetry.RecordSuccess(span)

	c.logger.Info().
		Str("entry", abs).
		Str("session_id", im.Session().ID()).
		Dur("duration", timer.Duration()).
		Msg("Stylesheet compiled")

	return &CompileResult{
		CSS:          res.CSS,
		SessionID:    im.Session().ID(),
		Dependencies: c.loader.Loaded(),
	}, nil
}

func sourceSyntax(path string) godartsass.SourceSyntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

// Close stops the Dart Sass processes.
func (c *Compiler) Close() error {
	var firstErr error
	if c.probe != nil {
		firstErr = c.probe.Close()
	}
	if !c.transpiler.IsShutDown() {
		if err := c.transpiler.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
