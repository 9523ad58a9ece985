package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_URISchemes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Protocol
	}{
		{"shadowsocks", "ss://YWVzLTI1Ni1nY206cHc@host:8388", ProtocolShadowsocks},
		{"trojan", "trojan://pw@host:443", ProtocolTrojan},
		{"vless", "vless://uuid@host:443?type=tcp", ProtocolXray},
		{"vmess", "vmess://eyJhZGQiOiJ4In0=", ProtocolXray},
		{"wg", "wg://key@host:51820", ProtocolWireGuard},
		{"wireguard", "wireguard://key@host:51820", ProtocolWireGuard},
		{"hysteria", "hysteria://host:443?auth=x", ProtocolHysteria2},
		{"hy2", "hy2://host:443?auth=x", ProtocolHysteria2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.in))
		})
	}
}

func TestDetect_Structural(t *testing.T) {
	wg := "[Interface]\nPrivateKey = abc\n\n[Peer]\nPublicKey = def\n"
	assert.Equal(t, ProtocolWireGuard, Detect(wg))

	awg := "[Interface]\nPrivateKey = abc\nJc = 4\n\n[Peer]\nPublicKey = def\n"
	assert.Equal(t, ProtocolAmneziaWG, Detect(awg))

	ovpn := "client\ndev tun\nremote example.com 1194\n"
	assert.Equal(t, ProtocolOpenVPN, Detect(ovpn))

	assert.Equal(t, ProtocolSingBox, Detect(`{"outbounds": []}`))
	assert.Equal(t, ProtocolXray, Detect(`{"inbounds": []}`))

	assert.Equal(t, ProtocolTor, Detect("SOCKSPort 9050\nControlPort 9051\n"))

	assert.Equal(t, ProtocolUnknown, Detect("hello world"))
}

func TestDetect_SchemeBeatsStructure(t *testing.T) {
	// A URI scheme prefix wins even when the body mentions section markers.
	in := "ss://something#[Interface][Peer]"
	assert.Equal(t, ProtocolShadowsocks, Detect(in))
}

func TestDetect_Stable(t *testing.T) {
	in := "vless://uuid@host:443"
	first := Detect(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Detect(in))
	}
}
