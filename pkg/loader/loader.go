// Package loader reads data files into the value model.
//
// Every supported format keeps the key order of the source document:
// JSON and JSON-with-comments through hujson, YAML through yaml.v3 nodes,
// TOML through the go-toml AST, CUE in field declaration order, HCL in
// source position order and Starlark in statement order.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/sassdata/pkg/telemetry"
	"github.com/openfroyo/sassdata/pkg/theme"
)

// Format identifies a data file syntax.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSON5    Format = "json5"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatCUE      Format = "cue"
	FormatHCL      Format = "hcl"
	FormatStarlark Format = "starlark"
)

var extensions = map[string]Format{
	".json":  FormatJSON,
	".json5": FormatJSON5,
	".yaml":  FormatYAML,
	".yml":   FormatYAML,
	".toml":  FormatTOML,
	".cue":   FormatCUE,
	".hcl":   FormatHCL,
	".star":  FormatStarlark,
}

// FormatOf returns the format for path's extension, case-insensitively.
func FormatOf(path string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// IsSupported reports whether path has a supported data file extension.
func IsSupported(path string) bool {
	_, ok := FormatOf(path)
	return ok
}

// Extensions returns the supported extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(extensions))
	for ext := range extensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Module is a loaded data file.
type Module struct {
	// Name is the "@module" property of the data or the extensionless file name.
	Name string

	// Path is the absolute path of the file.
	Path string

	Format   Format
	Data     any
	LoadedAt time.Time
}

// Options configures a Loader.
type Options struct {
	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer

	// StarlarkTimeout bounds module evaluation and each deferred call.
	StarlarkTimeout time.Duration
}

// Loader loads data files and remembers the last result per path.
type Loader struct {
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	starlark *StarlarkEvaluator
	cue      *cueDecoder

	mu    sync.RWMutex
	cache map[string]*Module
}

// New creates a loader.
func New(opts Options) *Loader {
	logger := opts.Logger.With().Str("component", "loader").Logger()
	return &Loader{
		logger:   logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		starlark: NewStarlarkEvaluator(opts.StarlarkTimeout, logger),
		cue:      newCUEDecoder(),
		cache:    make(map[string]*Module),
	}
}

// Load reads and decodes the file at path. Any cached entry for the path is
// evicted first, so a load always reflects the file's current contents.
func (l *Loader) Load(ctx context.Context, path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	format, ok := FormatOf(abs)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(abs))
	}

	ctx, span := l.tracer.StartLoadSpan(ctx, abs, string(format))
	defer span.End()

	l.Invalidate(abs)

	mod, err := l.load(ctx, abs, format)
	if err != nil {
		l.metrics.RecordLoad(string(format), "failed")
		telemetry.RecordError(span, err)
		return nil, err
	}
	l.metrics.RecordLoad(string(format), "ok")
	span.SetAttributes(telemetry.AttrModule.String(mod.Name))

	l.mu.Lock()
	l.cache[abs] = mod
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", abs).
		Str("format", string(format)).
		Str("module", mod.Name).
		Msg("Data file loaded")

	return mod, nil
}

func (l *Loader) load(ctx context.Context, path string, format Format) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var data any
	switch format {
	case FormatJSON:
		data, err = decodeJSON(src)
	case FormatJSON5:
		data, err = decodeJSON5(src)
	case FormatYAML:
		data, err = decodeYAML(src)
	case FormatTOML:
		data, err = decodeTOML(src)
	case FormatCUE:
		data, err = l.cue.decode(path, src)
	case FormatHCL:
		data, err = decodeHCL(path, src)
	case FormatStarlark:
		data, err = l.starlark.Evaluate(ctx, path, src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s file: %w", format, err)
	}

	return &Module{
		Name:     theme.ModuleName(BaseName(path), data),
		Path:     path,
		Format:   format,
		Data:     data,
		LoadedAt: time.Now(),
	}, nil
}

// Get returns the cached module for path, if any.
func (l *Loader) Get(path string) (*Module, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	mod, ok := l.cache[abs]
	return mod, ok
}

// Invalidate evicts the cached module for path and reports whether there
// was one.
func (l *Loader) Invalidate(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[abs]
	delete(l.cache, abs)
	return ok
}

// Reset evicts every cached module.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*Module)
	l.logger.Debug().Msg("Loader cache cleared")
}

// Loaded returns the paths of all cached modules, sorted.
func (l *Loader) Loaded() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	paths := make([]string, 0, len(l.cache))
	for p := range l.cache {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
