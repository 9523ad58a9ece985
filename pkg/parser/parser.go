// Package parser normalizes heterogeneous VPN/proxy connection strings and
// config blobs into a canonical, protocol-agnostic model.
//
// Input is adversarial by assumption: every decoder recovers from malformed
// data by reporting diagnostics instead of failing the process. Parsing is
// pure with respect to host state; the only host-derived values are the
// advisory tuning hints computed from the profile fixed at construction.
package parser

import "strings"

// HostProfile carries the host facts tuning hints are derived from.
// Values are fixed at parser construction so Parse stays deterministic.
type HostProfile struct {
	CPUCount     int
	MemoryMB     uint64
	VirtIOQueues int
}

// DefaultProfile mirrors the defaults used when the host cannot be probed.
func DefaultProfile() HostProfile {
	return HostProfile{CPUCount: 4, MemoryMB: 2048, VirtIOQueues: 4}
}

// Parser decodes raw connection material into CanonicalConfig values.
type Parser struct {
	profile HostProfile
}

// New returns a Parser deriving tuning hints from profile.
func New(profile HostProfile) *Parser {
	if profile.CPUCount <= 0 {
		profile.CPUCount = 4
	}
	if profile.MemoryMB == 0 {
		profile.MemoryMB = 2048
	}
	if profile.VirtIOQueues <= 0 {
		profile.VirtIOQueues = 4
	}
	return &Parser{profile: profile}
}

// hintNames maps accepted protocol hints to canonical tags. The DPI tools
// keep their own hint names but collapse into one protocol tag; the tool
// name is preserved in Transport["tool"].
var hintNames = map[string]Protocol{
	"wireguard":   ProtocolWireGuard,
	"amneziawg":   ProtocolAmneziaWG,
	"openvpn":     ProtocolOpenVPN,
	"xray":        ProtocolXray,
	"vless":       ProtocolXray,
	"vmess":       ProtocolXray,
	"shadowsocks": ProtocolShadowsocks,
	"trojan":      ProtocolTrojan,
	"sing-box":    ProtocolSingBox,
	"singbox":     ProtocolSingBox,
	"hysteria2":   ProtocolHysteria2,
	"tor":         ProtocolTor,
	"dpi-bypass":  ProtocolDPIBypass,
	"zapret":      ProtocolDPIBypass,
	"byedpi":      ProtocolDPIBypass,
	"goodbyedpi":  ProtocolDPIBypass,
}

// Parse ingests raw text with an optional protocol hint ("auto" or empty
// runs detection) and returns the canonical result. A Result with any entry
// in Errors reports Parsed == false; validation gaps surface as warnings
// and never flip Parsed on their own.
func (p *Parser) Parse(hint string, raw string) Result {
	res := Result{}

	hint = strings.ToLower(strings.TrimSpace(hint))
	proto, known := hintNames[hint]
	if hint == "" || hint == "auto" {
		proto = Detect(raw)
		res.AutoDetected = true
	} else if !known {
		proto = Protocol(hint)
		res.warnf("protocol %q may not be supported", hint)
	}
	res.Protocol = proto

	// dpiTool keeps the concrete tool name when the hint named one.
	dpiTool := ""
	if proto == ProtocolDPIBypass && hint != "dpi-bypass" && hint != "" && hint != "auto" {
		dpiTool = hint
	}

	switch proto {
	case ProtocolWireGuard:
		res.Config = p.decodeWireGuard(raw, &res)
	case ProtocolAmneziaWG:
		res.Config = p.decodeAmneziaWG(raw, &res)
	case ProtocolOpenVPN:
		res.Config = p.decodeOpenVPN(raw, &res)
	case ProtocolXray:
		res.Config = p.decodeXray(raw, &res)
	case ProtocolShadowsocks:
		res.Config = p.decodeShadowsocks(raw, &res)
	case ProtocolTrojan:
		res.Config = p.decodeTrojan(raw, &res)
	case ProtocolSingBox:
		res.Config = p.decodeSingBox(raw, &res)
	case ProtocolHysteria2:
		res.Config = p.decodeHysteria2(raw, &res)
	case ProtocolTor:
		res.Config = p.decodeTor(raw, &res)
	case ProtocolDPIBypass:
		res.Config = p.decodeDPIBypass(dpiTool, raw, &res)
	default:
		// The generic decoder only extracts best-effort diagnostics and
		// never claims success.
		res.Config = p.decodeGeneric(raw, &res)
		res.errorf("unrecognized configuration format")
	}

	// Decoding may upgrade the classification (wireguard -> amneziawg).
	// Unsupported hint tags stay as given so diagnostics echo the input.
	if res.Config != nil && res.Config.Protocol.Known() {
		res.Protocol = res.Config.Protocol
	}

	if len(res.Errors) == 0 {
		res.Parsed = true
		p.validate(&res)
	}
	res.Hints = p.tuningHints(res.Protocol)

	return res
}
