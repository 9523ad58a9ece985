package parser

import (
	"encoding/json"
	"strings"
)

// Detect classifies raw configuration text into a Protocol. It is a pure
// function: structural markers are checked in strict priority order and the
// first match wins.
//
// Priority: URI scheme prefixes, then WireGuard-family section structure,
// then OpenVPN directives, then JSON top-level key presence, then tor
// markers. Anything else is ProtocolUnknown.
func Detect(raw string) Protocol {
	data := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(data, "ss://"):
		return ProtocolShadowsocks
	case strings.HasPrefix(data, "trojan://"):
		return ProtocolTrojan
	case strings.HasPrefix(data, "vless://"), strings.HasPrefix(data, "vmess://"):
		return ProtocolXray
	case strings.HasPrefix(data, "wg://"), strings.HasPrefix(data, "wireguard://"):
		return ProtocolWireGuard
	case strings.HasPrefix(data, "amnezia://"):
		return ProtocolAmneziaWG
	case strings.HasPrefix(data, "hysteria://"), strings.HasPrefix(data, "hy2://"):
		return ProtocolHysteria2
	}

	if strings.Contains(data, "[Interface]") && strings.Contains(data, "[Peer]") {
		if hasAmneziaKeys(data) {
			return ProtocolAmneziaWG
		}
		return ProtocolWireGuard
	}

	lower := strings.ToLower(data)
	if strings.Contains(lower, "client") && strings.Contains(lower, "dev tun") {
		return ProtocolOpenVPN
	}

	if strings.HasPrefix(data, "{") {
		var top map[string]json.RawMessage
		if err := json.Unmarshal([]byte(data), &top); err == nil {
			if _, ok := top["outbounds"]; ok {
				return ProtocolSingBox
			}
			if _, ok := top["inbounds"]; ok {
				return ProtocolXray
			}
		}
	}

	if strings.Contains(lower, "socksport") || strings.Contains(lower, "hiddenservicedir") {
		return ProtocolTor
	}

	return ProtocolUnknown
}

// amneziaKeys are the obfuscation tunables only AmneziaWG understands
// (junk packet count/size and handshake header overrides). Their presence
// in an interface section upgrades a WireGuard classification.
var amneziaKeys = []string{"jc", "jmin", "jmax", "s1", "s2", "h1", "h2", "h3", "h4"}

func hasAmneziaKeys(data string) bool {
	for _, line := range strings.Split(data, "\n") {
		key, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		for _, awg := range amneziaKeys {
			if key == awg {
				return true
			}
		}
	}
	return false
}
