package parser

import "strings"

// decodeWireGuard handles both the INI-style config and the compact
// wg:// URL form.
func (p *Parser) decodeWireGuard(raw string, res *Result) *CanonicalConfig {
	data := strings.TrimSpace(raw)
	if strings.HasPrefix(data, "wg://") || strings.HasPrefix(data, "wireguard://") {
		return p.decodeWireGuardURL(data, res)
	}

	cfg := newCanonical(ProtocolWireGuard, raw)

	// Keys seen before the first [Section] header have no home and are
	// silently dropped, matching wg-quick's tolerance.
	section := ""
	var peer Peer

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			if section == "Peer" {
				if peer != nil {
					cfg.Peers = append(cfg.Peers, peer)
				}
				peer = Peer{}
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch section {
		case "Interface":
			if key == "privatekey" {
				cfg.Credentials[CredPrivateKey] = value
			} else {
				cfg.Transport[key] = value
			}
		case "Peer":
			peer[key] = value
		}
	}
	if peer != nil {
		cfg.Peers = append(cfg.Peers, peer)
	}

	if transportHasAmneziaKeys(cfg.Transport) {
		cfg.Protocol = ProtocolAmneziaWG
	}

	return cfg
}

func transportHasAmneziaKeys(transport map[string]string) bool {
	for _, key := range amneziaKeys {
		if _, ok := transport[key]; ok {
			return true
		}
	}
	return false
}

// decodeWireGuardURL parses the compact form
// wg://<privkey>[+<peer pubkey>]@host:port[?k=v...][#name].
func (p *Parser) decodeWireGuardURL(data string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolWireGuard, data)

	data = strings.TrimPrefix(data, "wireguard://")
	data = strings.TrimPrefix(data, "wg://")

	if body, frag, ok := strings.Cut(data, "#"); ok {
		data = body
		cfg.Name = percentDecode(frag, res)
	}
	if body, query, ok := strings.Cut(data, "?"); ok {
		data = body
		for key, value := range parseQuery(query) {
			cfg.Transport[strings.ToLower(key)] = value
		}
	}

	keys, endpoint, ok := strings.Cut(data, "@")
	if !ok {
		res.errorf("wireguard url: missing @endpoint")
		return cfg
	}

	peer := Peer{"endpoint": endpoint}
	if private, public, hasPeerKey := strings.Cut(keys, "+"); hasPeerKey {
		cfg.Credentials[CredPrivateKey] = private
		peer["publickey"] = public
	} else {
		cfg.Credentials[CredPrivateKey] = keys
	}
	cfg.Peers = append(cfg.Peers, peer)

	if host, port, err := splitHostPort(endpoint); err == nil {
		cfg.Endpoint = &Endpoint{Host: host, Port: port}
	}

	return cfg
}

// awgDefaults are the junk-packet tunables AmneziaWG falls back to when a
// config omits them.
var awgDefaults = [][2]string{
	{"jc", "4"},
	{"jmin", "30"},
	{"jmax", "50"},
	{"s1", "120"},
	{"s2", "150"},
}

func (p *Parser) decodeAmneziaWG(raw string, res *Result) *CanonicalConfig {
	cfg := p.decodeWireGuard(raw, res)
	cfg.Protocol = ProtocolAmneziaWG

	for _, kv := range awgDefaults {
		if _, ok := cfg.Transport[kv[0]]; !ok {
			cfg.Transport[kv[0]] = kv[1]
		}
	}
	return cfg
}
