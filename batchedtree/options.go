package batchedtree

import (
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
)

// Options configure an engine. They are not recorded in the region.
type Options struct {
	Log      logger.Logger
	Verifier Verifier
	// Clock stamps the snapshots returned by State.
	Clock func() time.Time
}

// Option is a generic option type. Implementations type assert to their
// options record and ignore options meant for other targets.
type Option func(any)

func WithLogger(log logger.Logger) Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.Log = log
		}
	}
}

func WithVerifier(verifier Verifier) Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.Verifier = verifier
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts any) {
		if o, ok := opts.(*Options); ok {
			o.Clock = clock
		}
	}
}

// NewOptions applies opts over the defaults: the package logger when one has
// been created, a verifier that rejects every proof and the system clock.
func NewOptions(opts ...Option) Options {
	o := Options{
		Verifier: RejectAll,
		Clock:    time.Now,
	}
	if logger.Sugar != nil {
		o.Log = logger.Sugar.WithServiceName("batchedtree")
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Verifier == nil {
		o.Verifier = RejectAll
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
