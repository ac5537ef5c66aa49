package urlx

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ExtractHost pulls the lowercased hostname out of a raw URL. The second
// return is false when the input cannot be parsed or carries no host, which
// callers treat as "no verdict possible".
func ExtractHost(rawurl string) (string, bool) {
	rawurl = strings.TrimSpace(rawurl)
	if rawurl == "" {
		return "", false
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", false
	}
	host := CanonicalHost(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

// CanonicalHost lowercases a hostname, strips the trailing dot and maps
// internationalized names to their punycode form.
func CanonicalHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}
	if !isASCII(host) {
		puny, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return ""
		}
		host = puny
	}
	return host
}

// NormalizeDomain canonicalizes a bare domain name. Returns false when the
// input does not look like a DNS name at all.
func NormalizeDomain(name string) (string, bool) {
	name = strings.Trim(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return "", false
	}
	if !isASCII(name) {
		puny, err := idna.Lookup.ToASCII(name)
		if err != nil {
			return "", false
		}
		name = puny
	}
	for _, label := range strings.Split(name, ".") {
		if !validLabel(label) {
			return "", false
		}
	}
	return name, true
}

// IsDomain reports whether the value is a plausible multi-label domain, used
// to decide whether a literal pattern doubles as a domain rule.
func IsDomain(name string) bool {
	dom, ok := NormalizeDomain(name)
	return ok && strings.Contains(dom, ".")
}

func validLabel(label string) bool {
	if label == "" {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
