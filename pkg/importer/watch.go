package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/openfroyo/sassdata/pkg/loader"
	"github.com/openfroyo/sassdata/pkg/telemetry"
)

// DefaultWatchDelay is how long the watcher waits for further changes
// before rebuilding.
const DefaultWatchDelay = 500 * time.Millisecond

// BuildFunc performs one build.
type BuildFunc func(ctx context.Context) (*CompileResult, error)

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// OnBuild receives the outcome of every build, including the first.
	OnBuild func(*CompileResult, error)

	Delay   time.Duration
	Logger  zerolog.Logger
	Metrics *telemetry.Metrics
}

// Watcher rebuilds a stylesheet when it, a stylesheet next to it or any data
// file it has imported changes.
type Watcher struct {
	build      BuildFunc
	invalidate func(path string) bool
	dirs       []string
	delay      time.Duration
	onBuild    func(*CompileResult, error)
	logger     zerolog.Logger
	metrics    *telemetry.Metrics

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	watched map[string]bool
	builds  int
}

// NewWatcher returns a watcher that recompiles entry with c.
func NewWatcher(c *Compiler, entry string, opts WatchOptions) (*Watcher, error) {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry %s: %w", entry, err)
	}
	dirs := append([]string{filepath.Dir(abs)}, c.opts.IncludePaths...)
	if c.opts.ThemeFile != "" {
		dirs = append(dirs, filepath.Dir(c.opts.ThemeFile))
	}
	build := func(ctx context.Context) (*CompileResult, error) {
		return c.Compile(ctx, abs)
	}
	return newWatcher(build, c.loader.Invalidate, dirs, opts), nil
}

func newWatcher(build BuildFunc, invalidate func(string) bool, dirs []string, opts WatchOptions) *Watcher {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	onBuild := opts.OnBuild
	if onBuild == nil {
		onBuild = func(*CompileResult, error) {}
	}
	return &Watcher{
		build:      build,
		invalidate: invalidate,
		dirs:       dirs,
		delay:      delay,
		onBuild:    onBuild,
		logger:     opts.Logger.With().Str("component", "watcher").Logger(),
		metrics:    opts.Metrics,
		watched:    make(map[string]bool),
	}
}

// Run builds once and then rebuilds on every relevant change until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	w.mu.Lock()
	w.fs = fw
	w.mu.Unlock()

	for _, dir := range w.dirs {
		w.watchDir(dir)
	}

	w.rebuild(ctx)

	w.logger.Info().
		Int("dirs", len(w.watched)).
		Msg("Started watching")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !relevant(event.Name) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("File changed")

			w.invalidate(event.Name)

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.delay, func() {
				w.rebuild(ctx)
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// Builds returns the number of builds run so far.
func (w *Watcher) Builds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builds
}

func (w *Watcher) rebuild(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	timer := telemetry.NewTimer()
	res, err := w.build(ctx)
	w.builds++

	if err != nil {
		w.metrics.RecordRebuild("failed")
		w.logger.Error().Err(err).Msg("Build failed")
	} else {
		w.metrics.RecordRebuild("ok")
		w.logger.Info().Dur("duration", timer.Duration()).Msg("Build completed")
		for _, dep := range res.Dependencies {
			w.watchDirLocked(filepath.Dir(dep))
		}
	}

	w.onBuild(res, err)
}

func (w *Watcher) watchDir(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchDirLocked(dir)
}

func (w *Watcher) watchDirLocked(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil || w.watched[abs] {
		return
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		w.logger.Warn().Str("path", abs).Msg("Skipping watch path")
		return
	}
	if err := w.fs.Add(abs); err != nil {
		w.logger.Warn().Err(err).Str("path", abs).Msg("Failed to watch directory")
		return
	}
	w.watched[abs] = true
}

func relevant(path string) bool {
	if loader.IsSupported(path) {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".scss", ".sass", ".css":
		return true
	}
	return false
}
