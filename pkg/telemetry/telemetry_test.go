package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "empty service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{
			name: "bad exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			wantErr: true,
		},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
			},
			wantErr: true,
		},
		{name: "sampling out of range", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: true},
		{
			name: "metrics without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ListenAddress = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetrics_Record(t *testing.T) {
	cfg := DefaultConfig().Metrics
	cfg.Enabled = true

	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordImport("module", "ok", 2*time.Millisecond)
	m.RecordImport("module", "ok", time.Millisecond)
	m.RecordImport("theme", "failed", time.Millisecond)
	m.RecordOracleProbe("value", true)
	m.RecordOracleProbe("key", false)
	m.RecordOracleCacheHit()
	m.RecordLoad("json", "ok")
	m.RecordRebuild("ok")

	if got := testutil.ToFloat64(m.imports.WithLabelValues("module", "ok")); got != 2 {
		t.Errorf("imports{module,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.oracleProbes.WithLabelValues("key", "rejected")); got != 1 {
		t.Errorf("oracle_probes{key,rejected} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.oracleCacheHits); got != 1 {
		t.Errorf("oracle_cache_hits = %v, want 1", got)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"sassdata_imports_total", "sassdata_loads_total", "sassdata_rebuilds_total"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected metric %s among %s", want, joined)
		}
	}
}

func TestMetrics_DisabledAndNilAreNoops(t *testing.T) {
	disabled, err := NewMetrics(MetricsConfig{})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	var nilMetrics *Metrics

	for _, m := range []*Metrics{disabled, nilMetrics} {
		m.RecordImport("module", "ok", time.Millisecond)
		m.RecordOracleProbe("value", true)
		m.RecordOracleCacheHit()
		m.RecordLoad("yaml", "failed")
		m.RecordRebuild("failed")
		if m.Registry() != nil {
			t.Errorf("expected no registry for disabled metrics")
		}
		if err := m.StartMetricsServer(context.Background(), NewNopLogger().Zerolog()); err != nil {
			t.Errorf("StartMetricsServer() error = %v", err)
		}
	}
}

func TestLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LoggingConfig{Level: "debug", Format: "json"})

	l.NewComponentLogger("importer").WithPath("/tmp/theme.json").Debug().Msg("loaded")

	out := buf.String()
	for _, want := range []string{`"component":"importer"`, `"path":"/tmp/theme.json"`, `"message":"loaded"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, LoggingConfig{Level: "info", Format: "json"})

	l.Debug().Msg("hidden")
	l.zlog.Info().Msg("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug message logged at info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("info message missing")
	}
}

func TestStartOperation_EndLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	tel := NewNop()
	tel.Logger = newLogger(&buf, LoggingConfig{Level: "debug", Format: "json"})
	ctx := tel.WithContext(context.Background())

	ic := StartOperation(ctx, "emit", AttrPath.String("colors.json"))
	ic.End(errors.New("boom"))

	ic = StartOperation(ctx, "resolve")
	ic.End(nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{`"operation":"emit"`, `"error":"boom"`, `"message":"Operation failed"`, `"duration"`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("failure log %q missing %s", lines[0], want)
		}
	}
	for _, want := range []string{`"operation":"resolve"`, `"message":"Operation completed"`} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("success log %q missing %s", lines[1], want)
		}
	}
}

func TestTracer_DisabledStartsNoopSpans(t *testing.T) {
	tr, err := NewTracer(TracingConfig{}, "sassdata", "dev", "test")
	if err != nil {
		t.Fatalf("NewTracer() error = %v", err)
	}

	ctx, span := tr.StartImportSpan(context.Background(), "colors.json", "/src/main.scss")
	defer span.End()

	if TraceID(ctx) != "" {
		t.Errorf("expected no trace id from a disabled tracer")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	var nilTracer *Tracer
	_, span2 := nilTracer.StartLoadSpan(context.Background(), "a.json", "json")
	span2.End()
}
