package hotconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/LukasParke/hotconf/config"
	"github.com/LukasParke/hotconf/middleware"
)

var (
	// ErrAlreadyMonitoring is returned by Monitor when the watcher was
	// already started.
	ErrAlreadyMonitoring = errors.New("hotconf: monitor already started")

	// ErrInvalidInterval is returned by New for a non-positive poll interval.
	ErrInvalidInterval = errors.New("hotconf: poll interval must be positive")
)

// Monitor keeps a decoded config file of type T up to date. The value is
// loaded once by New; Monitor starts the background watcher that reloads
// it whenever the file's modification time changes.
type Monitor[T any] struct {
	path     string
	opts     *options
	store    *config.Store[T]
	modTime  int64
	started  atomic.Bool
	logger   *slog.Logger
	reloader *config.Reloader[T]
}

// New loads the config file at path and returns a monitor for it. Any
// error reading, decoding, or validating the file fails construction;
// there is no fallback value.
func New[T any](path string, opts ...Option) (*Monitor[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, o.interval)
	}

	loaderOpts := []config.LoaderOption[T]{config.WithDecoder[T](o.decoder)}
	switch d := o.defaults.(type) {
	case nil:
	case T:
		loaderOpts = append(loaderOpts, config.WithDefaults(d))
	case func() T:
		loaderOpts = append(loaderOpts, config.WithDefaultsFunc(d))
	default:
		var zero T
		return nil, fmt.Errorf("hotconf: defaults of type %T do not match config type %T", o.defaults, zero)
	}
	if o.strict {
		loaderOpts = append(loaderOpts, config.WithStrict[T]())
	}
	if o.validate != nil {
		loaderOpts = append(loaderOpts, config.WithValidator[T](o.validate))
	}
	loader := config.NewLoader(path, loaderOpts...)

	// The timestamp is taken before reading so that a write racing with
	// the initial load is picked up by the first check.
	modTime, err := config.ModTime(path)
	if err != nil {
		return nil, err
	}
	initial, err := loader.Load()
	if err != nil {
		return nil, err
	}

	store := config.NewStore(initial)
	m := &Monitor[T]{
		path:     path,
		opts:     o,
		store:    store,
		modTime:  modTime,
		logger:   o.logger.With("component", "hotconf"),
		reloader: config.NewReloader(loader, store),
	}
	m.logger.Info("config loaded",
		"path", path,
		"format", loader.Format(),
		"mod_time", time.Unix(modTime, 0).UTC(),
	)
	return m, nil
}

// Data returns the shared store holding the current value. Every call
// returns the same store, so holders see reloads as they happen.
func (m *Monitor[T]) Data() *config.Store[T] {
	return m.store
}

// Path returns the monitored file.
func (m *Monitor[T]) Path() string {
	return m.path
}

// Interval returns the poll interval.
func (m *Monitor[T]) Interval() time.Duration {
	return m.opts.interval
}

// Monitor starts the background watcher and returns a handle to it. The
// watcher runs until ctx is done, Task.Stop is called, or, under the
// default failure policy, a reload fails. It can be started only once.
//
// The watcher's baseline is the modification time taken by New, not one
// read when Monitor is called: an edit made between New and Monitor is
// reloaded by the watcher's first check.
func (m *Monitor[T]) Monitor(ctx context.Context) (*Task, error) {
	if m.started.Swap(true) {
		return nil, ErrAlreadyMonitoring
	}

	mws := append([]middleware.Middleware{middleware.Recovery(m.logger)}, m.opts.middlewares...)
	reload := middleware.Chain(mws...)(func(ctx context.Context, _ string) error {
		return m.reloader.Reload(ctx)
	})

	watcherOpts := []config.WatcherOption{
		config.WithInterval(m.opts.interval),
		config.WithDebounce(m.opts.debounce),
		config.WithFailurePolicy(m.opts.policy),
		config.WithErrorHandler(m.reportError),
		config.WithWatcherLogger(m.logger),
	}
	if m.opts.events {
		watcherOpts = append(watcherOpts, config.WithEvents())
	}
	w := config.NewWatcher(m.path, m.modTime, func(ctx context.Context) error {
		return reload(ctx, m.path)
	}, watcherOpts...)

	return startTask(ctx, w), nil
}

func (m *Monitor[T]) reportError(err error) {
	if m.opts.onError != nil {
		m.opts.onError(err)
	}
	if m.opts.errCh != nil {
		select {
		case m.opts.errCh <- err:
		default:
			m.logger.Warn("error channel full, dropping reload error", "path", m.path)
		}
	}
}
