package middleware

import (
	"context"
	"sync"
	"time"
)

// Metrics tracks reload outcomes per config file.
type Metrics struct {
	mu    sync.Mutex
	files map[string]*fileStats
}

type fileStats struct {
	reloads    int64
	failures   int64
	streak     int64
	total      time.Duration
	lastReload time.Time
	lastErr    error
	lastErrAt  time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{files: make(map[string]*fileStats)}
}

func (m *Metrics) record(path string, elapsed time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fs, ok := m.files[path]
	if !ok {
		fs = &fileStats{}
		m.files[path] = fs
	}

	fs.reloads++
	fs.total += elapsed
	now := time.Now()
	if err != nil {
		fs.failures++
		fs.streak++
		fs.lastErr = err
		fs.lastErrAt = now
		return
	}
	fs.streak = 0
	fs.lastReload = now
}

// Snapshot returns a point-in-time copy of all file metrics.
func (m *Metrics) Snapshot() map[string]FileSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]FileSnapshot, len(m.files))
	for path, fs := range m.files {
		snap[path] = FileSnapshot{
			Count:         fs.reloads,
			Errors:        fs.failures,
			FailureStreak: fs.streak,
			TotalTime:     fs.total,
			LastReload:    fs.lastReload,
			LastError:     fs.lastErr,
			LastErrorAt:   fs.lastErrAt,
		}
	}
	return snap
}

// Healthy reports whether the most recent reload of path succeeded. Files
// that have never been reloaded are healthy.
func (m *Metrics) Healthy(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	fs, ok := m.files[path]
	return !ok || fs.streak == 0
}

// FileSnapshot is a point-in-time copy of metrics for one file.
// FailureStreak counts failed reloads since the last successful one; a
// config stuck on a stale value shows a non-zero streak.
type FileSnapshot struct {
	Count         int64
	Errors        int64
	FailureStreak int64
	TotalTime     time.Duration
	LastReload    time.Time
	LastError     error
	LastErrorAt   time.Time
}

// Telemetry returns middleware that records every reload's latency and
// outcome in metrics.
func Telemetry(metrics *Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, path string) error {
			start := time.Now()
			err := next(ctx, path)
			metrics.record(path, time.Since(start), err)
			return err
		}
	}
}
