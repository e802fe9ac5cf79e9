package hotconf

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LukasParke/hotconf/config"
	"github.com/LukasParke/hotconf/middleware"
)

// DefaultInterval is the poll interval used when WithInterval is not given.
const DefaultInterval = config.DefaultInterval

// Option configures a Monitor during construction.
type Option func(*options)

type options struct {
	interval    time.Duration
	logger      *slog.Logger
	decoder     config.Decoder
	defaults    any
	strict      bool
	validate    *validator.Validate
	events      bool
	debounce    time.Duration
	policy      config.FailurePolicy
	onError     func(error)
	errCh       chan<- error
	middlewares []middleware.Middleware
}

func defaultOptions() *options {
	return &options{
		interval: DefaultInterval,
		logger:   slog.Default(),
		debounce: config.DefaultDebounce,
		policy:   config.StopOnFailure,
	}
}

// WithInterval sets how long the watcher sleeps between checks of the
// file's modification time. The interval must be positive.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithLogger sets a custom slog logger on the monitor.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDecoder overrides the decoder picked from the file extension.
func WithDecoder(d config.Decoder) Option {
	return func(o *options) {
		o.decoder = d
	}
}

// WithDefaults decodes every load on top of a deep copy of defaults.
// T must be the type the monitor is created with.
func WithDefaults[T any](defaults T) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// WithDefaultsFunc decodes every load on top of a value returned by fn.
// T must be the type the monitor is created with.
func WithDefaultsFunc[T any](fn func() T) Option {
	return func(o *options) {
		o.defaults = fn
	}
}

// WithStrict rejects files containing keys the config type does not declare.
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithValidator validates every decoded value with struct tags before it
// is published. A nil v uses validator.New().
func WithValidator(v *validator.Validate) Option {
	return func(o *options) {
		if v == nil {
			v = validator.New(validator.WithRequiredStructEnabled())
		}
		o.validate = v
	}
}

// WithEvents enables filesystem notifications so that changes are picked
// up without waiting for the poll interval. Polling continues as a fallback.
func WithEvents() Option {
	return func(o *options) {
		o.events = true
	}
}

// WithDebounce sets how long the event backend waits for a burst of
// notifications to settle (default 100ms).
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithFailurePolicy chooses between stopping the watcher on the first
// failed reload (the default) and continuing to poll.
func WithFailurePolicy(p config.FailurePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithErrorHandler registers fn to be called from the watcher goroutine
// with every failed reload.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithErrorChannel delivers failed reloads on ch. Sends never block; errors
// are dropped while ch is full.
func WithErrorChannel(ch chan<- error) Option {
	return func(o *options) {
		o.errCh = ch
	}
}

// WithMiddleware adds middleware around every reload performed by the
// watcher. Middleware is applied in order: the first middleware is outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}
