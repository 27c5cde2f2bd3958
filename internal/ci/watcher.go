package ci

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/renderlab/rendergate/internal/preflight"
)

// LogLevel controls watch-mode verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Watcher re-validates plan documents whenever they change. Rapid event
// bursts for the same path are debounced, and concurrent re-validations of
// an unchanged path are deduplicated; each validation itself is a pure
// function of the document and source text, so no further locking is
// needed.
type Watcher struct {
	runner   *Runner
	dirs     []string
	debounce time.Duration
	logger   *log.Logger
	logLevel LogLevel

	mu     sync.Mutex
	timers map[string]*time.Timer
	sf     singleflight.Group
}

// NewWatcher creates a watcher over the given plan directories.
func NewWatcher(runner *Runner, dirs []string, debounce time.Duration, logger *log.Logger, level LogLevel) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		runner:   runner,
		dirs:     dirs,
		debounce: debounce,
		logger:   logger,
		logLevel: level,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until the context is cancelled. Every watched plan is
// validated once up front so the first report does not wait for a change.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	if _, err := w.runner.RunDirs(w.dirs); err != nil {
		w.log(LogLevelWarn, "initial_scan error=%v", err)
	}
	w.log(LogLevelInfo, "watching %d dir(s)", len(w.dirs))

	for {
		select {
		case <-ctx.Done():
			w.log(LogLevelInfo, "watch stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPlanFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.debounceValidate(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log(LogLevelWarn, "watch_error error=%v", err)
		}
	}
}

// debounceValidate resets the per-path timer so a burst of writes produces
// one validation.
func (w *Watcher) debounceValidate(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.validate(path)
	})
}

func (w *Watcher) validate(path string) {
	res, _, _ := w.sf.Do(path, func() (any, error) {
		return w.runner.RunOne(path), nil
	})
	r := res.(*preflight.Result)
	w.log(LogLevelInfo, "revalidated plan=%s status=%s", path, r.Status)
}

func (w *Watcher) log(level LogLevel, format string, args ...any) {
	if level < w.logLevel || w.logger == nil {
		return
	}
	levelStr := "INFO"
	switch level {
	case LogLevelDebug:
		levelStr = "DEBUG"
	case LogLevelWarn:
		levelStr = "WARN"
	case LogLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	w.logger.Printf("%s %s watch: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
