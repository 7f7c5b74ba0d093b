package oracle

import (
	"fmt"
	"io"
	"time"

	"github.com/bep/godartsass/v2"
	"github.com/rs/zerolog"

	"github.com/openfroyo/sassdata/pkg/telemetry"
)

// DartSassOptions configures a DartSass oracle.
type DartSassOptions struct {
	// Binary is the Dart Sass executable; empty means "sass" on PATH.
	Binary string

	// Timeout bounds a single probe compilation.
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
}

// DartSass probes fragments with a dedicated embedded Dart Sass process.
//
// It must not share a transpiler with a compilation whose import resolver
// calls back into the oracle: resolver callbacks run on the transpiler's
// reader goroutine, and a nested Execute on the same transpiler never
// completes.
type DartSass struct {
	transpiler *godartsass.Transpiler
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
}

// NewDartSass starts the Dart Sass process used for probing.
func NewDartSass(opts DartSassOptions) (*DartSass, error) {
	logger := opts.Logger.With().Str("component", "oracle").Logger()

	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: opts.Binary,
		Timeout:                  opts.Timeout,
		Stderr:                   io.Discard,
		LogEventHandler: func(e godartsass.LogEvent) {
			logger.Trace().Str("event", e.Message).Msg("Dart Sass log event")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start dart sass for probing: %w", err)
	}

	return &DartSass{
		transpiler: t,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// IsAcceptable compiles source and reports whether it succeeded.
func (d *DartSass) IsAcceptable(source string) bool {
	_, err := d.transpiler.Execute(godartsass.Args{
		Source:       source,
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		OutputStyle:  godartsass.OutputStyleCompressed,
	})
	accepted := err == nil
	if !accepted {
		d.logger.Debug().Err(err).Str("source", source).Msg("Probe rejected")
	}
	d.metrics.RecordOracleProbe(probeKind(source), accepted)
	return accepted
}

// Close stops the Dart Sass process.
func (d *DartSass) Close() error {
	if d.transpiler.IsShutDown() {
		return nil
	}
	return d.transpiler.Close()
}
