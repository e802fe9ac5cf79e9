package config

import "context"

// Reloader couples a Loader with the Store it feeds. Both the watcher and
// the initial load go through the same pipeline.
type Reloader[T any] struct {
	loader *Loader[T]
	store  *Store[T]
}

// NewReloader creates a reloader that publishes loader's results into store.
func NewReloader[T any](loader *Loader[T], store *Store[T]) *Reloader[T] {
	return &Reloader[T]{loader: loader, store: store}
}

// Reload loads the file and swaps the result into the store. On error the
// store is left untouched.
func (r *Reloader[T]) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := r.loader.Load()
	if err != nil {
		return err
	}
	r.store.Swap(cfg)
	return nil
}

// Path returns the file being reloaded.
func (r *Reloader[T]) Path() string { return r.loader.Path() }
