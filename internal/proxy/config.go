package proxy

import (
	"time"

	"github.com/xxxsen/warden/internal/privacy"
)

// Option configures the filtering proxy.
type Option func(*options)

type options struct {
	bind        string
	layer       *privacy.Layer
	dialTimeout time.Duration
}

// WithBind configures the listen address.
func WithBind(bind string) Option {
	return func(o *options) {
		o.bind = bind
	}
}

func WithLayer(l *privacy.Layer) Option {
	return func(o *options) {
		o.layer = l
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}
