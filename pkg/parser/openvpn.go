package parser

import (
	"strings"
)

// decodeOpenVPN parses client-style .ovpn text. Inline tag bodies
// (<ca>...</ca> and friends) are captured verbatim, including embedded
// blank lines, keyed by the lower-cased tag name.
func (p *Parser) decodeOpenVPN(raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolOpenVPN, raw)

	inlineTag := ""
	var inlineBody []string
	remotes := 0

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		if inlineTag != "" {
			if trimmed == "</"+inlineTag+">" {
				cfg.Transport["inline_"+strings.ToLower(inlineTag)] = strings.Join(inlineBody, "\n")
				inlineTag = ""
				inlineBody = nil
				continue
			}
			inlineBody = append(inlineBody, line)
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}

		if strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") && !strings.HasPrefix(trimmed, "</") {
			inlineTag = trimmed[1 : len(trimmed)-1]
			inlineBody = nil
			continue
		}

		parts := strings.Fields(trimmed)
		if len(parts) == 0 {
			continue
		}

		switch directive := strings.ToLower(parts[0]); directive {
		case "remote":
			if len(parts) < 2 {
				res.warnf("remote directive without server")
				continue
			}
			server := parts[1]
			port := 1194
			if len(parts) >= 3 {
				var ok bool
				if port, ok = parsePort(parts[2], "remote port", res); !ok {
					continue
				}
			}
			proto := "udp"
			if len(parts) >= 4 {
				proto = parts[3]
			}
			if remotes == 0 {
				cfg.Endpoint = &Endpoint{Host: server, Port: port}
				cfg.Transport["proto"] = proto
			}
			remotes++

		case "proto", "dev", "cipher", "auth":
			if len(parts) > 1 {
				cfg.Transport[directive] = parts[1]
			}

		case "auth-user-pass":
			cfg.Transport["auth_user_pass"] = "true"
			if len(parts) > 1 {
				cfg.Transport["auth_file"] = parts[1]
			}
		}
	}

	if inlineTag != "" {
		res.warnf("unterminated inline tag <%s>", inlineTag)
	}

	return cfg
}
