package parser

import (
	"strings"
	"unicode/utf8"
)

// decodeShadowsocks parses SIP002-style ss:// links. The authority segment
// is base64 of "method:password" or already-decoded "method:password";
// decoding is attempted first with a fallback to the plain form.
func (p *Parser) decodeShadowsocks(raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolShadowsocks, raw)

	data := strings.TrimSpace(raw)
	data = strings.TrimPrefix(data, "ss://")

	if body, frag, ok := strings.Cut(data, "#"); ok {
		data = body
		cfg.Name = percentDecode(frag, res)
	}
	if body, query, ok := strings.Cut(data, "?"); ok {
		data = body
		if plugin, ok := parseQuery(query)["plugin"]; ok {
			cfg.Transport["plugin"] = plugin
		}
	}

	auth, server, ok := strings.Cut(data, "@")
	if !ok {
		res.errorf("shadowsocks: missing @server segment")
		return cfg
	}

	method, password, ok := splitMethodPassword(auth)
	if !ok {
		res.errorf("shadowsocks: cannot decode method:password segment")
		return cfg
	}
	cfg.Transport["method"] = method
	cfg.Credentials[CredPassword] = password

	// net-style splitting keeps bracketed IPv6 hosts intact.
	host, port, err := splitHostPort(server)
	if err != nil {
		res.errorf("shadowsocks: bad server address %q: %v", server, err)
		return cfg
	}
	cfg.Endpoint = &Endpoint{Host: host, Port: port}

	return cfg
}

func splitMethodPassword(auth string) (string, string, bool) {
	if decoded, err := decodeBase64Loose(auth); err == nil && utf8.Valid(decoded) {
		if method, password, ok := strings.Cut(string(decoded), ":"); ok {
			return method, password, true
		}
	}
	// Fall back to treating the segment as already decoded.
	if method, password, ok := strings.Cut(auth, ":"); ok {
		return method, password, true
	}
	return "", "", false
}
