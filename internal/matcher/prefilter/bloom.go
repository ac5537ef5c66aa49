package prefilter

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// DefaultFPRate bounds the false-positive probability at the expected
	// load.
	DefaultFPRate = 0.01
	minCapacity   = 1024
)

// Filter is a bloom filter over blocked domain keys. It only ever grows:
// removals are left to the exact structures behind it, so a stale positive
// costs one extra exact lookup and nothing more.
type Filter struct {
	bf *bloom.BloomFilter
}

// New sizes the filter for the expected number of domain keys at the given
// false-positive rate. Out-of-range arguments fall back to the defaults; a
// capacity floor keeps tiny lists from degenerating.
func New(expected int, fpRate float64) *Filter {
	if expected < minCapacity {
		expected = minCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultFPRate
	}
	return &Filter{bf: bloom.NewWithEstimates(uint(expected), fpRate)}
}

// Add records a blocked domain key.
func (f *Filter) Add(domain string) {
	f.bf.AddString(domain)
}

// MaybeHost reports whether the host or any parent suffix of it might be
// present. False means definitely absent: no domain anchor can cover the
// host.
func (f *Filter) MaybeHost(host string) bool {
	for {
		if f.bf.TestString(host) {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// Usage returns the fraction of bits currently set, a saturation signal for
// long-running instances that keep absorbing added patterns.
func (f *Filter) Usage() float64 {
	m := f.bf.Cap()
	if m == 0 {
		return 0
	}
	return float64(f.bf.BitSet().Count()) / float64(m)
}
