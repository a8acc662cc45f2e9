// Package watch keeps the document indexes in sync with a directory on
// disk. File creations and edits re-ingest the file; deletions remove its
// chunks. Events are debounced per path so editors that write in bursts
// trigger a single re-index. Used by `docqa serve --watch`.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docqa-ai/docqa-go/internal/ingest"
	"github.com/docqa-ai/docqa-go/internal/logging"
)

// defaultDebounce is how long a path must stay quiet before it is synced.
// Editors and downloads produce several events per save; half a second
// collapses them into one re-ingest.
const defaultDebounce = 500 * time.Millisecond

// Ingester is the slice of the ingest pipeline the watcher drives.
// *ingest.Pipeline satisfies it.
type Ingester interface {
	// Ingest processes the given files and reports per-file outcomes.
	Ingest(ctx context.Context, paths []string, progress func(msg string)) []ingest.FileResult
	// RemoveSource deletes every indexed chunk of the named source file.
	RemoveSource(ctx context.Context, source string) error
}

// Config holds the watcher configuration.
type Config struct {
	// Dir is the directory to watch. Subdirectories present at start are
	// watched too, as are directories created while watching.
	Dir string
	// Debounce is how long to wait after the last event on a path before
	// syncing it. Defaults to 500ms.
	Debounce time.Duration
	// OnUpdate, if set, runs after the indexes changed so callers can
	// rebuild derived state such as the in-memory lexical index.
	OnUpdate func()
}

// Watcher re-indexes documents as they change on disk.
type Watcher struct {
	pipeline Ingester
	dir      string
	debounce time.Duration
	onUpdate func()
	fsw      *fsnotify.Watcher

	// mu guards timers.
	mu sync.Mutex
	// timers holds the pending per-path debounce timers.
	timers map[string]*time.Timer
}

// New constructs a Watcher over cfg.Dir. The directory must exist.
func New(pipeline Ingester, cfg *Config) (*Watcher, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("watch: pipeline must not be nil")
	}
	if cfg == nil || cfg.Dir == "" {
		return nil, fmt.Errorf("watch: a directory to watch is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", cfg.Dir)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	return &Watcher{
		pipeline: pipeline,
		dir:      cfg.Dir,
		debounce: debounce,
		onUpdate: cfg.OnUpdate,
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Run watches until the context is cancelled. It blocks; callers start it in
// a goroutine alongside the server.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.stopTimers()

	if err := w.addRecursive(w.dir); err != nil {
		return err
	}

	log := logging.FromContext(ctx)
	log.Info("watching for document changes", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch: filesystem error", slog.Any("error", err))
		}
	}
}

// addRecursive registers dir and every subdirectory with the watcher.
// fsnotify watches are not recursive on their own.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("watch: scanning %s: %w", dir, walkErr)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: adding %s: %w", path, err)
		}
		return nil
	})
}

// handleEvent schedules a debounced sync for document events and registers
// newly created directories.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				logging.FromContext(ctx).Warn("watch: could not watch new directory",
					slog.String("dir", event.Name),
					slog.Any("error", err))
			}
			return
		}
	}

	// Only documents the pipeline can ingest are tracked.
	if _, err := ingest.DetectFormat(event.Name); err != nil {
		return
	}

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.schedule(ctx, event.Name)
	}
}

// schedule (re)arms the debounce timer for path. The sync runs once the path
// has been quiet for the debounce window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.sync(ctx, path)
	})
}

// stopTimers cancels all pending debounce timers.
func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// sync brings the indexes in line with the file's current state: re-ingest
// when it exists, drop its chunks when it does not. Deciding by the state on
// disk rather than the event type keeps editor rename dances (write to a
// temp file, rename over the original) from being treated as deletions.
func (w *Watcher) sync(ctx context.Context, path string) {
	log := logging.FromContext(ctx)
	source := filepath.Base(path)

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warn("watch: stat failed", slog.String("path", path), slog.Any("error", err))
			return
		}
		if err := w.pipeline.RemoveSource(ctx, source); err != nil {
			log.Warn("watch: removing deleted source failed",
				slog.String("source", source),
				slog.Any("error", err))
			return
		}
		log.Info("removed deleted source from indexes", slog.String("source", source))
		w.notify()
		return
	}

	for _, res := range w.pipeline.Ingest(ctx, []string{path}, nil) {
		if res.Err != nil {
			log.Warn("watch: re-ingest failed",
				slog.String("path", res.Path),
				slog.Any("error", res.Err))
			return
		}
		log.Info("re-ingested changed file",
			slog.String("source", res.Source),
			slog.Int("chunks", res.Chunks))
	}
	w.notify()
}

// notify runs the OnUpdate hook, if any.
func (w *Watcher) notify() {
	if w.onUpdate != nil {
		w.onUpdate()
	}
}
