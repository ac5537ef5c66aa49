package matcher

// Stats is a point-in-time summary of the engine content.
type Stats struct {
	Patterns   int     `json:"patterns"`
	Domains    int     `json:"domains"`
	BloomUsage float64 `json:"bloom_filter_usage"`
}

// IURLMatcher classifies outgoing request URLs against compiled block
// patterns. Implementations are single-writer: Matches never blocks and may
// run concurrently with other Matches calls, but Initialize, AddPattern,
// RemovePattern and Clear need exclusive access arranged by the owner.
type IURLMatcher interface {
	// Initialize bulk-compiles the pattern list and replaces all engine
	// state. Unusable patterns are dropped silently.
	Initialize(patterns []string)
	// Matches reports whether the URL is blocked. It returns false for
	// unparseable input and while the engine is uninitialized, never an
	// error.
	Matches(rawurl string) bool
	// AddPattern compiles and registers one pattern in place. Re-adding a
	// known pattern changes nothing.
	AddPattern(pattern string)
	// RemovePattern unregisters one pattern from the exact structures. The
	// bloom filter is left stale on purpose; the exact structures stay
	// authoritative.
	RemovePattern(pattern string)
	// Clear drops all state and returns the engine to uninitialized.
	Clear()
	Stats() Stats
	IsInitialized() bool
}

// Option tunes engine construction.
type Option func(*options)

type options struct {
	fpRate          float64
	expectedDomains int
}

// WithFalsePositiveRate overrides the bloom filter false-positive target.
func WithFalsePositiveRate(rate float64) Option {
	return func(o *options) {
		o.fpRate = rate
	}
}

// WithExpectedDomains pre-sizes the bloom filter for workloads that grow
// mostly through AddPattern after a small initial load.
func WithExpectedDomains(n int) Option {
	return func(o *options) {
		o.expectedDomains = n
	}
}

// New creates an uninitialized engine.
func New(opts ...Option) IURLMatcher {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}
	d := &defaultMatcher{opts: o}
	d.reset()
	return d
}
