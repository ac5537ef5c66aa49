package source

import (
	"strings"
)

const (
	FormatABP   = "abp"
	FormatHosts = "hosts"
	FormatPlain = "plain"
)

// ParseLines filters raw blocklist text down to usable rules. Block rules and
// "@@" exception rules come back separately so the caller can feed them to the
// matcher and the allowlist respectively.
func ParseLines(lines []string, format string) *Payload {
	switch format {
	case FormatHosts:
		return parseHosts(lines)
	case FormatPlain:
		return parsePlain(lines)
	default:
		return parseABP(lines)
	}
}

func parseABP(lines []string) *Payload {
	p := &Payload{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// comment and metadata lines, e.g. "[Adblock Plus 2.0]"
		if strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
			continue
		}
		// cosmetic element-hiding rules have no network meaning here
		if strings.Contains(line, "##") || strings.Contains(line, "#@#") || strings.Contains(line, "#?#") {
			continue
		}
		// strip inline filter options such as "$third-party,script"
		if idx := strings.Index(line, "$"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}
		if strings.HasPrefix(line, "@@") {
			exception := strings.TrimSpace(strings.TrimPrefix(line, "@@"))
			if exception != "" {
				p.Exceptions = append(p.Exceptions, exception)
			}
			continue
		}
		p.Rules = append(p.Rules, line)
	}
	return p
}

// parseHosts accepts hosts-file style lines, both "0.0.0.0 tracker.com" and
// bare "tracker.com", and rewrites them as domain anchor rules.
func parseHosts(lines []string) *Payload {
	p := &Payload{}
	for _, line := range lines {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		var name string
		switch len(fields) {
		case 0:
			continue
		case 1:
			name = fields[0]
		default:
			name = fields[1]
		}
		if name == "" || name == "localhost" || name == "localhost.localdomain" || name == "broadcasthost" {
			continue
		}
		p.Rules = append(p.Rules, "||"+name+"^")
	}
	return p
}

func parsePlain(lines []string) *Payload {
	p := &Payload{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.Rules = append(p.Rules, line)
	}
	return p
}
