package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs each reload's path, duration, and errors.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, path string) error {
			start := time.Now()
			err := next(ctx, path)
			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("path", path),
				slog.Duration("duration", duration),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "reload failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelDebug, "reload handled", attrs...)
			}

			return err
		}
	}
}
