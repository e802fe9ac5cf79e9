package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is returned by Recovery when a reload panicked.
type PanicError struct {
	Path  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("reloading config %s: panic: %v", e.Path, e.Value)
}

// Recovery returns middleware that recovers from panics during a reload,
// for example in a custom decoder or UnmarshalJSON method, logs the stack
// trace, and turns the panic into a *PanicError.
func Recovery(logger ...*slog.Logger) Middleware {
	var log *slog.Logger
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	} else {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, path string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					log.Error("panic recovered in reload",
						"path", path,
						"panic", fmt.Sprint(r),
						"stack", string(stack),
					)
					err = &PanicError{Path: path, Value: r}
				}
			}()
			return next(ctx, path)
		}
	}
}
