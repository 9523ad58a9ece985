package parser

import "fmt"

// Protocol identifies a supported backend protocol family. The set is
// closed: detection never produces a value outside of it.
type Protocol string

const (
	ProtocolWireGuard   Protocol = "wireguard"
	ProtocolAmneziaWG   Protocol = "amneziawg"
	ProtocolOpenVPN     Protocol = "openvpn"
	ProtocolXray        Protocol = "xray"
	ProtocolShadowsocks Protocol = "shadowsocks"
	ProtocolTrojan      Protocol = "trojan"
	ProtocolSingBox     Protocol = "sing-box"
	ProtocolHysteria2   Protocol = "hysteria2"
	ProtocolTor         Protocol = "tor"
	ProtocolDPIBypass   Protocol = "dpi-bypass"
	ProtocolUnknown     Protocol = "unknown"
)

// Known reports whether p is one of the supported protocol tags.
func (p Protocol) Known() bool {
	switch p {
	case ProtocolWireGuard, ProtocolAmneziaWG, ProtocolOpenVPN, ProtocolXray,
		ProtocolShadowsocks, ProtocolTrojan, ProtocolSingBox, ProtocolHysteria2,
		ProtocolTor, ProtocolDPIBypass:
		return true
	}
	return false
}

// Tunnel reports whether p is a tunnel-style protocol that carries peers.
func (p Protocol) Tunnel() bool {
	return p == ProtocolWireGuard || p == ProtocolAmneziaWG || p == ProtocolOpenVPN
}

// Credential kinds used as keys in CanonicalConfig.Credentials.
const (
	CredPrivateKey = "private_key"
	CredPassword   = "password"
	CredUUID       = "uuid"
	CredAuthToken  = "auth_token"
)

// Endpoint is a remote (host, port) pair.
type Endpoint struct {
	Host string
	Port int
}

// Peer is one peer record of a tunnel-style protocol; attribute keys are
// lower-cased source keys.
type Peer map[string]string

// CanonicalConfig is the protocol-agnostic normalized representation that
// every decoder produces into. Credentials are carried opaquely and never
// interpreted. Transport keys are protocol-specific with no fixed schema.
//
// The struct is deterministic with respect to the raw input: parsing the
// same text twice yields an identical value.
type CanonicalConfig struct {
	Protocol    Protocol
	Name        string
	Endpoint    *Endpoint
	Credentials map[string]string
	Transport   map[string]string
	Peers       []Peer

	// Raw preserves the original input so launch-artifact writers can pass
	// full native configs (xray/sing-box JSON) through untouched.
	Raw string
}

func newCanonical(p Protocol, raw string) *CanonicalConfig {
	return &CanonicalConfig{
		Protocol:    p,
		Credentials: map[string]string{},
		Transport:   map[string]string{},
		Raw:         raw,
	}
}

// Result is the envelope returned by Parse. A Result with a non-empty
// Errors slice always has Parsed == false; the Config may still be attached
// for debugging but must never be treated as launchable.
type Result struct {
	Protocol     Protocol
	AutoDetected bool
	Parsed       bool
	Config       *CanonicalConfig
	Warnings     []string
	Errors       []string

	// Hints carries advisory host-tuning annotations (queue counts,
	// congestion settings). Never validated, never part of the config.
	Hints map[string]string
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
