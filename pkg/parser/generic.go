package parser

import (
	"regexp"
	"strings"
)

var (
	ipv4Pattern   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	portPattern   = regexp.MustCompile(`\bport[=:\s]+(\d+)\b`)
	base64Pattern = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)
)

// decodeGeneric is the fallback for unrecognized input. It extracts IPv4
// addresses, port assignments and base64-looking tokens purely as
// best-effort diagnostics; it never claims success.
func (p *Parser) decodeGeneric(raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolUnknown, raw)

	if ips := ipv4Pattern.FindAllString(raw, 5); len(ips) > 0 {
		cfg.Transport["detected_ips"] = strings.Join(ips, ",")
		res.warnf("unrecognized input mentions addresses: %s", strings.Join(ips, ", "))
	}
	if ports := portPattern.FindAllStringSubmatch(strings.ToLower(raw), 5); len(ports) > 0 {
		values := make([]string, 0, len(ports))
		for _, m := range ports {
			values = append(values, m[1])
		}
		cfg.Transport["detected_ports"] = strings.Join(values, ",")
		res.warnf("unrecognized input mentions ports: %s", strings.Join(values, ", "))
	}
	if base64Pattern.MatchString(raw) {
		res.warnf("unrecognized input appears to contain key material")
	}

	return cfg
}
