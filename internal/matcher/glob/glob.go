package glob

import "strings"

// Glob is a compiled wildcard pattern: the literal fragments between '*'
// runs, plus whether the pattern is anchored at either end. Fragment text is
// opaque, so grouping or repetition characters like "(", ")", "+" or "|"
// carry no special meaning.
type Glob struct {
	raw         string
	fragments   []string
	anchorStart bool
	anchorEnd   bool
}

// Compile splits a pattern on '*'. Runs of consecutive wildcards collapse
// into one.
func Compile(pattern string) *Glob {
	g := &Glob{
		raw:         pattern,
		anchorStart: !strings.HasPrefix(pattern, "*"),
		anchorEnd:   !strings.HasSuffix(pattern, "*"),
	}
	for _, part := range strings.Split(pattern, "*") {
		if part != "" {
			g.fragments = append(g.fragments, part)
		}
	}
	return g
}

// Match reports whether value matches the pattern. Anchored fragments are
// pinned to their end of the value; the remaining fragments are located left
// to right with a cursor that only ever advances, so the cost is bounded by
// len(value) times the fragment count and no input can trigger
// backtracking.
func (g *Glob) Match(value string) bool {
	frags := g.fragments
	if g.anchorStart && len(frags) > 0 {
		first := frags[0]
		if !strings.HasPrefix(value, first) {
			return false
		}
		value = value[len(first):]
		frags = frags[1:]
	}
	if g.anchorEnd && len(frags) > 0 {
		last := frags[len(frags)-1]
		if !strings.HasSuffix(value, last) {
			return false
		}
		value = value[:len(value)-len(last)]
		frags = frags[:len(frags)-1]
	}
	pos := 0
	for _, frag := range frags {
		idx := strings.Index(value[pos:], frag)
		if idx < 0 {
			return false
		}
		pos += idx + len(frag)
	}
	if g.anchorStart && g.anchorEnd && len(g.fragments) < 2 {
		// No wildcard can absorb a remainder, the value must be fully
		// consumed.
		return value == ""
	}
	return true
}

// Fragments returns the number of literal fragments.
func (g *Glob) Fragments() int {
	return len(g.fragments)
}

func (g *Glob) String() string {
	return g.raw
}
