package parser

import (
	"encoding/json"
	"strconv"
	"strings"
)

// decodeHysteria2 parses hysteria://, hy2:// links or a raw JSON config.
func (p *Parser) decodeHysteria2(raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolHysteria2, raw)

	data := strings.TrimSpace(raw)
	if !strings.HasPrefix(data, "hysteria://") && !strings.HasPrefix(data, "hy2://") {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			res.errorf("hysteria2: input is neither a hysteria:// link nor valid JSON")
			return cfg
		}
		cfg.Transport["format"] = "json"
		return cfg
	}

	data = strings.TrimPrefix(data, "hysteria://")
	data = strings.TrimPrefix(data, "hy2://")

	if body, frag, ok := strings.Cut(data, "#"); ok {
		data = body
		cfg.Name = percentDecode(frag, res)
	}

	address := data
	var params map[string]string
	if body, query, ok := strings.Cut(data, "?"); ok {
		address = body
		params = parseQuery(query)
	}

	// Only a bracketed host or a single colon means a port is present;
	// anything else (plain host, bare IPv6) takes the protocol default.
	host := address
	port := 443
	if strings.HasPrefix(address, "[") || strings.Count(address, ":") == 1 {
		var err error
		if host, port, err = splitHostPort(address); err != nil {
			res.errorf("hysteria2: bad server address %q: %v", address, err)
			return cfg
		}
	}
	if host == "" {
		res.errorf("hysteria2: missing server address")
		return cfg
	}
	cfg.Endpoint = &Endpoint{Host: host, Port: port}

	if auth, ok := params["auth"]; ok {
		cfg.Credentials[CredAuthToken] = auth
	}
	// Bandwidth figures are required-numeric when present.
	for _, key := range []string{"up", "down"} {
		raw, ok := params[key]
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(raw); err != nil {
			res.errorf("hysteria2 %s: non-numeric value %q", key, raw)
			return cfg
		}
		cfg.Transport[key+"_mbps"] = raw
	}

	return cfg
}
