package parser

import "strings"

// torDefaults are filled in when a torrc omits them so the launch artifact
// always has usable listen ports.
var torDefaults = [][2]string{
	{"socksport", "9050"},
	{"controlport", "9051"},
}

// decodeTor parses torrc-style "Key value" lines.
func (p *Parser) decodeTor(raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolTor, raw)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		cfg.Transport[strings.ToLower(key)] = strings.TrimSpace(value)
	}

	for _, kv := range torDefaults {
		if _, ok := cfg.Transport[kv[0]]; !ok {
			cfg.Transport[kv[0]] = kv[1]
		}
	}

	return cfg
}
