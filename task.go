package hotconf

import (
	"context"

	"github.com/LukasParke/hotconf/config"
)

// Task is a handle to a running watcher.
type Task struct {
	watcher *config.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

func startTask(ctx context.Context, w *config.Watcher) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		watcher: w,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = w.Run(ctx)
	}()
	return t
}

// Done is closed when the watcher has terminated.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the watcher terminates. It returns nil after a clean
// stop and the failure that ended the watcher otherwise.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Err returns the watcher's outcome without blocking: nil while it is
// still running or after a clean stop.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Stop cancels the watcher and waits for it to return.
func (t *Task) Stop() error {
	t.cancel()
	return t.Wait()
}

// Trigger makes the watcher check the file's modification time now
// instead of at the end of the current interval.
func (t *Task) Trigger() {
	t.watcher.Trigger()
}
