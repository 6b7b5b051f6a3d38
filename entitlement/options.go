package entitlement

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 500 * time.Millisecond

type options struct {
	nowFunc func() time.Time
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*options)

func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

// WithTimeout bounds every store lookup made on behalf of a request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		nowFunc: time.Now,
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	return o
}
