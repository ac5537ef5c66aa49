package api

import (
	"github.com/xxxsen/warden/internal/activity"
	"github.com/xxxsen/warden/internal/privacy"
)

// Option configures the management server.
type Option func(*options)

type options struct {
	bind  string
	layer *privacy.Layer
	sink  *activity.RingSink
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

func WithSink(sink *activity.RingSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}
