package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ovpnSample = `client
dev tun
proto udp
remote vpn.example.com 1194 udp
remote backup.example.com 443 tcp
cipher AES-256-GCM
auth SHA256
auth-user-pass creds.txt
<ca>
-----BEGIN CERTIFICATE-----
MIIBszCCAVmgAwIBAgIUJ

dGVzdCBjZXJ0IGJvZHk=
-----END CERTIFICATE-----
</ca>
`

func TestOpenVPN_Decode(t *testing.T) {
	res := New(DefaultProfile()).Parse("auto", ovpnSample)

	require.True(t, res.Parsed, "errors: %v", res.Errors)
	assert.Equal(t, ProtocolOpenVPN, res.Protocol)
	require.NotNil(t, res.Config.Endpoint)
	assert.Equal(t, "vpn.example.com", res.Config.Endpoint.Host)
	assert.Equal(t, 1194, res.Config.Endpoint.Port)
	assert.Equal(t, "udp", res.Config.Transport["proto"])
	assert.Equal(t, "AES-256-GCM", res.Config.Transport["cipher"])
	assert.Equal(t, "true", res.Config.Transport["auth_user_pass"])
	assert.Equal(t, "creds.txt", res.Config.Transport["auth_file"])
}

func TestOpenVPN_InlineTagKeepsBlankLines(t *testing.T) {
	res := New(DefaultProfile()).Parse("openvpn", ovpnSample)

	require.True(t, res.Parsed)
	body := res.Config.Transport["inline_ca"]
	assert.Contains(t, body, "-----BEGIN CERTIFICATE-----")
	assert.Contains(t, body, "\n\n", "blank lines inside the tag must survive")
	assert.Contains(t, body, "-----END CERTIFICATE-----")
}

func TestOpenVPN_RemoteDefaults(t *testing.T) {
	res := New(DefaultProfile()).Parse("openvpn", "remote vpn.example.com")

	require.True(t, res.Parsed)
	require.NotNil(t, res.Config.Endpoint)
	assert.Equal(t, 1194, res.Config.Endpoint.Port)
	assert.Equal(t, "udp", res.Config.Transport["proto"])
}

func TestOpenVPN_NonNumericPortFatal(t *testing.T) {
	res := New(DefaultProfile()).Parse("openvpn", "remote vpn.example.com abc udp")

	assert.False(t, res.Parsed)
	assert.NotEmpty(t, res.Errors)
}

func TestOpenVPN_UnterminatedTagWarns(t *testing.T) {
	in := "remote vpn.example.com 1194\n<ca>\nbody\n"
	res := New(DefaultProfile()).Parse("openvpn", in)

	assert.True(t, res.Parsed)
	assert.NotEmpty(t, res.Warnings)
}
