// Package middleware provides composable middleware for config reloads.
// Middleware wraps the step that reloads one config file, allowing
// cross-cutting concerns like logging, panic recovery, and telemetry to be
// applied to every reload.
package middleware

import "context"

// Handler reloads the config file at path.
type Handler func(ctx context.Context, path string) error

// Middleware wraps a Handler to add cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain composes multiple middleware into a single middleware.
// Middleware is applied in the order given: the first middleware in the slice
// is the outermost wrapper (executes first).
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
