package pattern

import (
	"strings"

	"github.com/xxxsen/warden/internal/matcher/glob"
	"github.com/xxxsen/warden/internal/urlx"
)

// MaxLength caps accepted pattern text. Longer input is dropped without an
// error so one oversized line cannot poison a bulk load.
const MaxLength = 512

// Kind tags the compiled form of a filter rule. Everything downstream of the
// compiler branches on the tag, never on raw pattern text.
type Kind int

const (
	KindDomainAnchor Kind = iota
	KindWildcard
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindDomainAnchor:
		return "domain_anchor"
	case KindWildcard:
		return "wildcard"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Pattern is one compiled filter rule. Raw is the normalized text and serves
// as the dedup key; the payload fields are filled per kind.
type Pattern struct {
	Raw    string
	Kind   Kind
	Domain string     // anchors, and literals that double as bare domains
	Glob   *glob.Glob // wildcards only
}

// Compile turns one raw filter line into its tagged form. ok is false for
// empty, oversized or unusable input, which callers drop silently.
func Compile(raw string) (*Pattern, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > MaxLength {
		return nil, false
	}
	raw = strings.ToLower(raw)
	if strings.HasPrefix(raw, "||") {
		if p, ok := compileAnchor(raw); ok {
			return p, true
		}
		// An anchor whose domain part carries wildcards, e.g.
		// "||ads.*/banner", still works as a floating glob once the anchor
		// markers are stripped.
		if strings.Contains(raw, "*") {
			body := "*" + strings.TrimSuffix(strings.TrimPrefix(raw, "||"), "^")
			return &Pattern{Raw: raw, Kind: KindWildcard, Glob: glob.Compile(body)}, true
		}
		return nil, false
	}
	if strings.Contains(raw, "*") {
		return &Pattern{Raw: raw, Kind: KindWildcard, Glob: glob.Compile(raw)}, true
	}
	p := &Pattern{Raw: raw, Kind: KindLiteral}
	if urlx.IsDomain(raw) {
		p.Domain, _ = urlx.NormalizeDomain(raw)
	}
	return p, true
}

func compileAnchor(raw string) (*Pattern, bool) {
	body := strings.TrimPrefix(raw, "||")
	if idx := strings.IndexAny(body, "^/?"); idx >= 0 {
		body = body[:idx]
	}
	dom, ok := urlx.NormalizeDomain(body)
	if !ok {
		return nil, false
	}
	return &Pattern{Raw: raw, Kind: KindDomainAnchor, Domain: dom}, true
}
