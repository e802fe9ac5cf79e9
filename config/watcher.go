package config

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultInterval is the poll interval used when none is configured.
	DefaultInterval = 300 * time.Second

	// DefaultDebounce is how long the event backend waits for a burst of
	// filesystem events to settle before checking the file.
	DefaultDebounce = 100 * time.Millisecond
)

// FailurePolicy decides what the watcher does after a failed check.
type FailurePolicy int

const (
	// StopOnFailure ends Run with the error. The store keeps the last good
	// value and no further reloads are attempted.
	StopOnFailure FailurePolicy = iota

	// ContinueOnFailure reports the error and keeps polling.
	ContinueOnFailure
)

func (p FailurePolicy) String() string {
	switch p {
	case StopOnFailure:
		return "stop"
	case ContinueOnFailure:
		return "continue"
	default:
		return "unknown"
	}
}

// Watcher polls a config file's modification time and calls onChange
// whenever it differs from the last one seen. With the event backend
// enabled, filesystem notifications trigger an early check; the interval
// timer keeps running as a fallback.
type Watcher struct {
	path     string
	interval time.Duration
	debounce time.Duration
	events   bool
	policy   FailurePolicy
	onChange func(ctx context.Context) error
	onError  func(error)
	logger   *slog.Logger

	// lastSeen is owned by the Run goroutine.
	lastSeen int64
	trigger  chan struct{}
	running  atomic.Bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the poll interval (default 300s).
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDebounce sets the debounce duration for the event backend (default 100ms).
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithEvents enables the fsnotify backend.
func WithEvents() WatcherOption {
	return func(w *Watcher) { w.events = true }
}

// WithFailurePolicy sets what happens after a failed check (default StopOnFailure).
func WithFailurePolicy(p FailurePolicy) WatcherOption {
	return func(w *Watcher) { w.policy = p }
}

// WithErrorHandler registers fn to be called with every failed check.
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = fn }
}

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher for path. lastSeen is the modification time,
// as returned by ModTime, of the content that is currently loaded.
func NewWatcher(path string, lastSeen int64, onChange func(ctx context.Context) error, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		interval: DefaultInterval,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   slog.Default(),
		lastSeen: lastSeen,
		trigger:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Trigger asks a running watcher to check the file now instead of waiting
// for the rest of the interval.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run checks the file, then sleeps for the interval, until ctx is done or
// a check fails under StopOnFailure. It returns nil when ctx ends the loop
// and the failure otherwise. Run may be called only once.
func (w *Watcher) Run(ctx context.Context) error {
	if w.running.Swap(true) {
		return errors.New("config watcher already running")
	}

	var events <-chan struct{}
	if w.events {
		ev, stop, err := w.watchEvents()
		if err != nil {
			// Polling still works without notifications.
			w.logger.Warn("failed to start config file notifications", "path", w.path, "error", err)
		} else {
			events = ev
			defer stop()
		}
	}

	w.logger.Info("config watcher started",
		"path", w.path,
		"interval", w.interval,
		"events", events != nil,
		"policy", w.policy.String(),
	)

	for {
		if err := w.check(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("config watcher stopped", "path", w.path)
				return nil
			}
			w.logger.Error("config reload failed", "path", w.path, "error", err)
			if w.onError != nil {
				w.onError(err)
			}
			if w.policy == StopOnFailure {
				w.logger.Warn("config watcher stopped, keeping last loaded config", "path", w.path)
				return err
			}
		}

		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("config watcher stopped", "path", w.path)
			return nil
		case <-timer.C:
		case <-w.trigger:
			timer.Stop()
		case <-events:
			timer.Stop()
		}
	}
}

func (w *Watcher) check(ctx context.Context) error {
	current, err := ModTime(w.path)
	if err != nil {
		return err
	}
	if current == w.lastSeen {
		return nil
	}
	w.lastSeen = current

	if err := w.onChange(ctx); err != nil {
		return err
	}
	w.logger.Info("config reloaded", "path", w.path, "mod_time", time.Unix(current, 0).UTC())
	return nil
}

// watchEvents watches the parent directory so that editors which save by
// rename are still seen. Events for other files are ignored.
func (w *Watcher) watchEvents() (<-chan struct{}, func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, nil, err
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	name := filepath.Base(w.path)

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-done:
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(w.debounce, func() {
						w.logger.Debug("config file changed", "path", w.path, "op", event.Op.String())
						select {
						case out <- struct{}{}:
						default:
						}
					})
				}

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", "path", w.path, "error", err)
			}
		}
	}()

	stop := func() {
		close(done)
		fsw.Close()
	}
	return out, stop, nil
}
