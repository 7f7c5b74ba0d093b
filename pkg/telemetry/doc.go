// Package telemetry provides observability instrumentation for sassdata.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus).
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.Enabled = true
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// Library packages take a plain zerolog.Logger; the wrapper hands one out:
//
//	imp := importer.New(importer.Options{Logger: tel.Logger.Zerolog()})
//
// Log levels: trace, debug, info, warn, error, fatal. Logs go to stderr by
// default because the CLI writes declarations and CSS to stdout.
//
// # Distributed Tracing
//
// Three spans are emitted: "import" per importer request, "load" per data
// file read, and "compile" per stylesheet compilation. Supported exporters
// are "stdout", "otlp" (gRPC) and "none".
//
// # Metrics
//
// Metrics live in a private registry and are served by the watch command
// when enabled:
//
//   - sassdata_imports_total{kind,status}
//   - sassdata_import_duration_seconds{kind}
//   - sassdata_oracle_probes_total{probe,result}
//   - sassdata_oracle_cache_hits_total
//   - sassdata_loads_total{format,status}
//   - sassdata_rebuilds_total{status}
//
// A nil *Metrics records nothing, so components accept it as optional.
package telemetry
