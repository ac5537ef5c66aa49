package privacy

import (
	"github.com/xxxsen/warden/internal/activity"
	"github.com/xxxsen/warden/internal/matcher"
)

type options struct {
	cacheSize   int
	sink        activity.ISink
	matcherOpts []matcher.Option
}

type Option func(*options)

func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

func WithSink(sink activity.ISink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(o *options) {
		o.matcherOpts = append(o.matcherOpts, opts...)
	}
}
