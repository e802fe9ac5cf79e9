package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LukasParke/hotconf/configtest"
)

const waitFor = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type runResult struct {
	done chan struct{}
	err  error
}

func startWatcher(t *testing.T, ctx context.Context, w *Watcher) *runResult {
	t.Helper()
	r := &runResult{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.err = w.Run(ctx)
	}()
	return r
}

func currentModTime(t *testing.T, f *configtest.File) int64 {
	t.Helper()
	mt, err := ModTime(f.Path())
	if err != nil {
		t.Fatal(err)
	}
	return mt
}

func TestWatcherReloadsOnModTimeChange(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	var calls atomic.Int32
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithInterval(10*time.Millisecond), WithWatcherLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startWatcher(t, ctx, w)

	configtest.Never(t, 50*time.Millisecond, func() bool { return calls.Load() > 0 }, "reload without a change")

	f.Write(`{"id": 2}`)
	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 1 }, "reload after write")

	f.Touch()
	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 2 }, "reload after touch")

	cancel()
	configtest.AssertDone(t, r.done, waitFor)
	if r.err != nil {
		t.Errorf("Run returned %v after cancel, want nil", r.err)
	}
}

func TestWatcherIgnoresContentWithoutModTimeChange(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	var calls atomic.Int32
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithInterval(5*time.Millisecond), WithWatcherLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWatcher(t, ctx, w)

	f.WriteKeepTime(`{"id": 2}`)
	configtest.Never(t, 100*time.Millisecond, func() bool { return calls.Load() > 0 }, "reload with unchanged mod time")
}

func TestWatcherPicksUpChangeBeforeStart(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	lastSeen := currentModTime(t, f)
	f.Write(`{"id": 2}`)

	var calls atomic.Int32
	w := NewWatcher(f.Path(), lastSeen, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithInterval(time.Hour), WithWatcherLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWatcher(t, ctx, w)

	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 1 }, "first check reloads")
}

func TestWatcherStopOnFailure(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	boom := errors.New("boom")
	var calls atomic.Int32
	var reported []error
	var mu sync.Mutex

	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		calls.Add(1)
		return boom
	},
		WithInterval(10*time.Millisecond),
		WithWatcherLogger(discardLogger()),
		WithErrorHandler(func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		}),
	)

	r := startWatcher(t, context.Background(), w)
	f.Touch()

	configtest.AssertDone(t, r.done, waitFor)
	if !errors.Is(r.err, boom) {
		t.Fatalf("Run returned %v, want boom", r.err)
	}

	f.Touch()
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times, want 1", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || !errors.Is(reported[0], boom) {
		t.Errorf("reported = %v", reported)
	}
}

func TestWatcherStopsWhenFileRemoved(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error { return nil },
		WithInterval(10*time.Millisecond), WithWatcherLogger(discardLogger()))

	r := startWatcher(t, context.Background(), w)
	f.Remove()

	configtest.AssertDone(t, r.done, waitFor)
	var ioErr *IOError
	if !errors.As(r.err, &ioErr) {
		t.Fatalf("expected *IOError, got %T: %v", r.err, r.err)
	}
}

func TestWatcherContinueOnFailure(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	var calls atomic.Int32
	var failures atomic.Int32

	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("half-written file")
		}
		return nil
	},
		WithInterval(10*time.Millisecond),
		WithFailurePolicy(ContinueOnFailure),
		WithErrorHandler(func(error) { failures.Add(1) }),
		WithWatcherLogger(discardLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startWatcher(t, ctx, w)

	f.Touch()
	configtest.Eventually(t, waitFor, func() bool { return failures.Load() == 1 }, "failure reported")
	configtest.AssertRunning(t, r.done)

	f.Touch()
	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 2 }, "reload after recovery")
	if n := failures.Load(); n != 1 {
		t.Errorf("failures = %d, want 1", n)
	}
}

func TestWatcherContinueOnMissingFile(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	var calls atomic.Int32
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		calls.Add(1)
		return nil
	},
		WithInterval(10*time.Millisecond),
		WithFailurePolicy(ContinueOnFailure),
		WithWatcherLogger(discardLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startWatcher(t, ctx, w)

	f.Remove()
	time.Sleep(30 * time.Millisecond)
	configtest.AssertRunning(t, r.done)

	f.Write(`{"id": 3}`)
	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 1 }, "reload after file returns")
}

func TestWatcherTrigger(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	var calls atomic.Int32
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithInterval(time.Hour), WithWatcherLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWatcher(t, ctx, w)

	f.Touch()
	configtest.Never(t, 50*time.Millisecond, func() bool { return calls.Load() > 0 }, "reload before interval")

	w.Trigger()
	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 1 }, "reload after trigger")
}

func TestWatcherEvents(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{"id": 1}`)
	var calls atomic.Int32
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error {
		calls.Add(1)
		return nil
	},
		WithInterval(time.Hour),
		WithEvents(),
		WithDebounce(10*time.Millisecond),
		WithWatcherLogger(discardLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := startWatcher(t, ctx, w)

	// Give the watcher time to register with the kernel.
	time.Sleep(50 * time.Millisecond)
	f.Write(`{"id": 2}`)
	configtest.Eventually(t, waitFor, func() bool { return calls.Load() == 1 }, "reload from event")

	cancel()
	configtest.AssertDone(t, r.done, waitFor)
}

func TestWatcherRunTwice(t *testing.T) {
	f := configtest.NewFile(t, "app.json", `{}`)
	w := NewWatcher(f.Path(), currentModTime(t, f), func(context.Context) error { return nil },
		WithInterval(time.Hour), WithWatcherLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWatcher(t, ctx, w)
	configtest.Eventually(t, waitFor, func() bool { return w.running.Load() }, "first run started")

	if err := w.Run(ctx); err == nil {
		t.Fatal("second Run succeeded")
	}
}

func TestFailurePolicyString(t *testing.T) {
	tests := []struct {
		p    FailurePolicy
		want string
	}{
		{StopOnFailure, "stop"},
		{ContinueOnFailure, "continue"},
		{FailurePolicy(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
