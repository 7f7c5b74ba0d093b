// Package importer turns data file requests from the Sass compiler into
// declaration documents.
//
// A request is declined unless its URL names a supported data file. The
// file is then found on the search path and loaded. Files whose
// extensionless name is one of the configured theme names become the
// session's current theme; every other file is merged with the theme's
// override for its module and emitted together with the theme and its
// global variables.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"

	"github.com/openfroyo/sassdata/pkg/loader"
	"github.com/openfroyo/sassdata/pkg/oracle"
	"github.com/openfroyo/sassdata/pkg/sass"
	"github.com/openfroyo/sassdata/pkg/telemetry"
	"github.com/openfroyo/sassdata/pkg/theme"
	"github.com/openfroyo/sassdata/pkg/value"
)

// ThemeKey is the context key the current theme is emitted under.
const ThemeKey = "theme"

// DefaultThemeNames are the file names classified as theme definitions.
var DefaultThemeNames = []string{"theme"}

// Kind classifies a data file.
type Kind string

const (
	KindTheme  Kind = "theme"
	KindModule Kind = "module"
)

// Options configures an Importer.
type Options struct {
	// IncludePaths are searched after the importing file's directory.
	IncludePaths []string

	// ThemeNames are the extensionless file names treated as themes.
	ThemeNames []string

	// Oracle decides quoting; required.
	Oracle oracle.Oracle

	// Loader is shared between importers to reuse its cache; a new one is
	// created when nil.
	Loader *loader.Loader

	// Session holds the current theme; a new one is created when nil.
	Session *theme.Session

	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Importer serves import requests for one build session.
type Importer struct {
	includePaths []string
	themeNames   []string
	loader       *loader.Loader
	session      *theme.Session
	emitter      *sass.Emitter
	logger       zerolog.Logger
	metrics      *telemetry.Metrics
	tracer       *telemetry.Tracer
}

// New creates an importer.
func New(opts Options) *Importer {
	logger := opts.Logger.With().Str("component", "importer").Logger()

	themeNames := opts.ThemeNames
	if len(themeNames) == 0 {
		themeNames = DefaultThemeNames
	}
	l := opts.Loader
	if l == nil {
		l = loader.New(loader.Options{Logger: opts.Logger, Metrics: opts.Metrics, Tracer: opts.Tracer})
	}
	session := opts.Session
	if session == nil {
		session = theme.NewSession()
	}

	return &Importer{
		includePaths: opts.IncludePaths,
		themeNames:   themeNames,
		loader:       l,
		session:      session,
		emitter:      sass.NewEmitter(opts.Oracle),
		logger:       logger.With().Str("session_id", session.ID()).Logger(),
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
	}
}

// Session returns the importer's build session.
func (im *Importer) Session() *theme.Session {
	return im.session
}

// Loader returns the importer's module loader.
func (im *Importer) Loader() *loader.Loader {
	return im.loader
}

// IncludePaths returns the configured include paths.
func (im *Importer) IncludePaths() []string {
	return im.includePaths
}

// KindOf classifies the data file at path by its extensionless name.
func (im *Importer) KindOf(path string) Kind {
	if slices.Contains(im.themeNames, loader.BaseName(path)) {
		return KindTheme
	}
	return KindModule
}

// Import handles a request for url from the file prev.
func (im *Importer) Import(ctx context.Context, url, prev string) Result {
	if !loader.IsSupported(url) {
		im.logger.Trace().Str("url", url).Msg("Declining import")
		return declined()
	}

	ctx, span := im.tracer.StartImportSpan(ctx, url, prev)
	defer span.End()

	path, err := ResolvePath(url, prev, im.includePaths)
	if err != nil {
		ierr := asError(err, url)
		im.metrics.RecordImport("unknown", StatusFailed.String(), 0)
		span.SetAttributes(telemetry.AttrErrorClass.String(string(ierr.Class)))
		telemetry.RecordError(span, ierr)
		im.logger.Warn().Str("url", url).Str("prev", prev).Msg(ierr.Message)
		return failed("", ierr)
	}

	result := im.ImportFile(ctx, path)
	if result.Err != nil {
		span.SetAttributes(
			telemetry.AttrErrorClass.String(string(result.Err.Class)),
			telemetry.AttrErrorCode.String(result.Err.Code),
		)
		telemetry.RecordError(span, result.Err)
	} else {
		telemetry.RecordSuccess(span)
	}
	return result
}

// ImportFile handles a request for a data file that is already resolved.
func (im *Importer) ImportFile(ctx context.Context, path string) Result {
	timer := telemetry.NewTimer()
	kind := im.KindOf(path)

	doc, ierr := im.transform(ctx, path)
	status := StatusOK
	if ierr != nil {
		status = StatusFailed
	}
	im.metrics.RecordImport(string(kind), status.String(), timer.Duration())

	logger := im.logger.With().Str("path", path).Str("kind", string(kind)).Logger()
	if ierr != nil {
		logger.Error().Err(ierr.Err).Str("code", ierr.Code).Msg("Import failed")
		return failed(path, ierr)
	}
	logger.Debug().Dur("duration", timer.Duration()).Msg("Import completed")
	return succeeded(path, doc)
}

func (im *Importer) transform(ctx context.Context, path string) (string, *Error) {
	scope, ierr := im.Context(ctx, path)
	if ierr != nil {
		return "", ierr
	}
	doc, err := im.emitter.Emit(scope)
	if err != nil {
		return "", TransformError(ErrCodeSerializeFailed, path, err)
	}
	return doc, nil
}

// Context loads the data file at path and builds the mapping that is
// emitted for it. Loading a theme installs it as the session's current
// theme.
//
// A theme contributes {theme: <resolved theme>} followed by its global
// variables. A module contributes the keys of its merged data (or
// {<module>: data} when the data is not a mapping), then the current theme
// under "theme" and the theme's global variables.
func (im *Importer) Context(ctx context.Context, path string) (*value.Map, *Error) {
	mod, err := im.loader.Load(ctx, path)
	if err != nil {
		return nil, LoadError(path, err)
	}

	if im.KindOf(path) == KindTheme {
		resolved, err := im.installTheme(ctx, mod)
		if err != nil {
			return nil, TransformError(ErrCodeResolveFailed, path, err)
		}
		scope := value.NewMap()
		scope.Set(ThemeKey, resolved)
		spreadGlobals(scope, resolved)
		return scope, nil
	}

	current, hasTheme := im.session.Theme()
	merged, identity, err := theme.MergeModuleContext(ctx, mod.Name, mod.Data, current)
	if err != nil {
		return nil, TransformError(ErrCodeMergeFailed, path, err)
	}

	scope := value.NewMap()
	if m, ok := merged.(*value.Map); ok {
		m.Range(func(k string, v any) bool {
			scope.Set(k, v)
			return true
		})
	} else {
		scope.Set(identity, merged)
	}
	if hasTheme {
		scope.Set(ThemeKey, current)
		spreadGlobals(scope, current)
	}
	return scope, nil
}

// Evaluate loads the data file at path and returns its resolved value: the
// resolved theme for theme files and the merged data for modules. A theme
// is installed as the current theme.
func (im *Importer) Evaluate(ctx context.Context, path string) (any, Kind, error) {
	mod, err := im.loader.Load(ctx, path)
	if err != nil {
		return nil, "", LoadError(path, err)
	}
	if im.KindOf(path) == KindTheme {
		resolved, err := im.installTheme(ctx, mod)
		if err != nil {
			return nil, KindTheme, TransformError(ErrCodeResolveFailed, path, err)
		}
		return resolved, KindTheme, nil
	}
	current, _ := im.session.Theme()
	merged, _, err := theme.MergeModuleContext(ctx, mod.Name, mod.Data, current)
	if err != nil {
		return nil, KindModule, TransformError(ErrCodeMergeFailed, path, err)
	}
	return merged, KindModule, nil
}

// LoadTheme resolves the theme file at path, searched for like an import
// from the working directory, and installs it without emitting anything.
func (im *Importer) LoadTheme(ctx context.Context, path string) error {
	abs := path
	if !filepath.IsAbs(path) {
		found, err := findIn(path, append([]string{"."}, im.includePaths...))
		if err != nil {
			return err
		}
		abs = found
	}
	mod, err := im.loader.Load(ctx, abs)
	if err != nil {
		return LoadError(abs, err)
	}
	if _, err := im.installTheme(ctx, mod); err != nil {
		return TransformError(ErrCodeResolveFailed, abs, err)
	}
	return nil
}

func (im *Importer) installTheme(ctx context.Context, mod *loader.Module) (*value.Map, error) {
	resolved, err := theme.ResolveThemeContext(ctx, mod.Data)
	if err != nil {
		return nil, err
	}
	im.session.SetTheme(mod.Path, resolved)
	im.logger.Info().
		Str("path", mod.Path).
		Int("keys", resolved.Len()).
		Msg("Theme installed")
	return resolved, nil
}

func spreadGlobals(scope, t *value.Map) {
	globals, ok := theme.GlobalVars(t)
	if !ok {
		return
	}
	globals.Range(func(k string, v any) bool {
		scope.Set(k, v)
		return true
	})
}

func asError(err error, path string) *Error {
	if ierr, ok := err.(*Error); ok {
		return ierr
	}
	return LoadError(path, fmt.Errorf("resolving file: %w", err))
}
