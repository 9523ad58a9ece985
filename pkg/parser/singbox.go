package parser

import (
	"encoding/json"
	"strconv"
)

// decodeSingBox extracts the outbound summary of a sing-box JSON config.
// The full document rides along in Raw for the launch path.
func (p *Parser) decodeSingBox(raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolSingBox, raw)

	var doc struct {
		Inbounds  []json.RawMessage `json:"inbounds"`
		Outbounds []struct {
			Type       string      `json:"type"`
			Tag        string      `json:"tag"`
			Server     string      `json:"server"`
			ServerPort json.Number `json:"server_port"`
		} `json:"outbounds"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		res.errorf("sing-box: malformed JSON: %v", err)
		return cfg
	}

	cfg.Transport["inbounds"] = strconv.Itoa(len(doc.Inbounds))
	cfg.Transport["outbounds"] = strconv.Itoa(len(doc.Outbounds))

	for _, out := range doc.Outbounds {
		if out.Server == "" {
			continue
		}
		port := 0
		if out.ServerPort != "" {
			var ok bool
			if port, ok = parsePort(out.ServerPort.String(), "sing-box server_port", res); !ok {
				return cfg
			}
		}
		cfg.Endpoint = &Endpoint{Host: out.Server, Port: port}
		cfg.Transport["outbound_type"] = out.Type
		cfg.Transport["outbound_tag"] = out.Tag
		break
	}

	return cfg
}
