package matcher

import (
	"strings"

	"github.com/xxxsen/warden/internal/matcher/domain"
	"github.com/xxxsen/warden/internal/matcher/glob"
	"github.com/xxxsen/warden/internal/matcher/pattern"
	"github.com/xxxsen/warden/internal/matcher/prefilter"
	"github.com/xxxsen/warden/internal/matcher/substr"
	"github.com/xxxsen/warden/internal/urlx"
)

type defaultMatcher struct {
	opts     *options
	inited   bool
	patterns map[string]*pattern.Pattern
	index    *domain.Trie
	globs    []*glob.Glob
	scanner  *substr.Scanner
	bloom    *prefilter.Filter
}

func (d *defaultMatcher) reset() {
	d.inited = false
	d.patterns = make(map[string]*pattern.Pattern)
	d.index = domain.NewTrie()
	d.globs = nil
	d.scanner = substr.NewScanner()
	d.bloom = nil
}

func (d *defaultMatcher) Initialize(patterns []string) {
	d.reset()
	compiled := make([]*pattern.Pattern, 0, len(patterns))
	domains := 0
	for _, raw := range patterns {
		p, ok := pattern.Compile(raw)
		if !ok {
			continue
		}
		if _, exists := d.patterns[p.Raw]; exists {
			continue
		}
		d.patterns[p.Raw] = p
		compiled = append(compiled, p)
		if p.Domain != "" {
			domains++
		}
	}
	if domains < d.opts.expectedDomains {
		domains = d.opts.expectedDomains
	}
	d.bloom = prefilter.New(domains, d.opts.fpRate)
	for _, p := range compiled {
		d.apply(p)
	}
	d.inited = true
}

func (d *defaultMatcher) Matches(rawurl string) bool {
	if !d.inited {
		return false
	}
	host, ok := urlx.ExtractHost(rawurl)
	if !ok {
		return false
	}
	if d.bloom == nil || d.bloom.MaybeHost(host) {
		if d.index.MatchSuffix(host) {
			return true
		}
	} else if len(d.globs) == 0 && d.scanner.Len() == 0 {
		// Definitely no anchor for this host and nothing that would scan
		// the full URL.
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(rawurl))
	for _, g := range d.globs {
		if g.Match(lower) {
			return true
		}
	}
	return d.scanner.Contains(lower)
}

func (d *defaultMatcher) AddPattern(raw string) {
	p, ok := pattern.Compile(raw)
	if !ok {
		return
	}
	if _, exists := d.patterns[p.Raw]; exists {
		return
	}
	d.patterns[p.Raw] = p
	d.apply(p)
}

func (d *defaultMatcher) RemovePattern(raw string) {
	p, ok := pattern.Compile(raw)
	if !ok {
		return
	}
	if _, exists := d.patterns[p.Raw]; !exists {
		return
	}
	delete(d.patterns, p.Raw)
	switch p.Kind {
	case pattern.KindDomainAnchor:
		d.index.Remove(p.Domain)
	case pattern.KindWildcard:
		want := p.Glob.String()
		for i, g := range d.globs {
			if g.String() == want {
				d.globs = append(d.globs[:i], d.globs[i+1:]...)
				break
			}
		}
	case pattern.KindLiteral:
		d.scanner.Remove(p.Raw)
		if p.Domain != "" {
			d.index.Remove(p.Domain)
		}
	}
}

func (d *defaultMatcher) Clear() {
	d.reset()
}

func (d *defaultMatcher) Stats() Stats {
	st := Stats{
		Patterns: len(d.patterns),
		Domains:  d.index.Len(),
	}
	if d.bloom != nil {
		st.BloomUsage = d.bloom.Usage()
	}
	return st
}

func (d *defaultMatcher) IsInitialized() bool {
	return d.inited
}

func (d *defaultMatcher) apply(p *pattern.Pattern) {
	switch p.Kind {
	case pattern.KindDomainAnchor:
		d.index.Add(p.Domain)
		if d.bloom != nil {
			d.bloom.Add(p.Domain)
		}
	case pattern.KindWildcard:
		d.globs = append(d.globs, p.Glob)
	case pattern.KindLiteral:
		d.scanner.Add(p.Raw)
		if p.Domain != "" {
			d.index.Add(p.Domain)
			if d.bloom != nil {
				d.bloom.Add(p.Domain)
			}
		}
	}
}
