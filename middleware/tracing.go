package middleware

import (
	"context"
	"sync/atomic"
)

var reloadSeq atomic.Uint64

// Tracing returns middleware that tags each reload's context with the file
// path and a process-wide sequence number.
func Tracing() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, path string) error {
			ctx = context.WithValue(ctx, traceKey{}, Trace{Path: path, Seq: reloadSeq.Add(1)})
			return next(ctx, path)
		}
	}
}

// Trace identifies one reload.
type Trace struct {
	Path string
	Seq  uint64
}

type traceKey struct{}

// TraceFrom returns the reload trace from the context, if set by Tracing middleware.
func TraceFrom(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}
