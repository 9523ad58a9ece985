package parser

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShadowsocks_Base64RoundTrip(t *testing.T) {
	auth := base64.StdEncoding.EncodeToString([]byte("chacha20-ietf-poly1305:secret-pw"))
	in := "ss://" + auth + "@proxy.example.com:8443#My%20Node"

	res := New(DefaultProfile()).Parse("auto", in)

	require.True(t, res.Parsed)
	assert.Equal(t, ProtocolShadowsocks, res.Protocol)
	assert.Equal(t, "chacha20-ietf-poly1305", res.Config.Transport["method"])
	assert.Equal(t, "secret-pw", res.Config.Credentials[CredPassword])
	require.NotNil(t, res.Config.Endpoint)
	assert.Equal(t, "proxy.example.com", res.Config.Endpoint.Host)
	assert.Equal(t, 8443, res.Config.Endpoint.Port)
	assert.Equal(t, "My Node", res.Config.Name)
}

func TestShadowsocks_UnpaddedBase64(t *testing.T) {
	// Wild links often drop padding; the loose decoder must still work.
	in := "ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTpwYXNzd29yZA@example.com:8443#MySS"
	res := New(DefaultProfile()).Parse("shadowsocks", in)

	require.True(t, res.Parsed)
	assert.Equal(t, "chacha20-ietf-poly1305", res.Config.Transport["method"])
	assert.Equal(t, "password", res.Config.Credentials[CredPassword])
}

func TestShadowsocks_PlainMethodPassword(t *testing.T) {
	in := "ss://aes-256-gcm:pw@1.2.3.4:8388"
	res := New(DefaultProfile()).Parse("shadowsocks", in)

	require.True(t, res.Parsed)
	assert.Equal(t, "aes-256-gcm", res.Config.Transport["method"])
	assert.Equal(t, "pw", res.Config.Credentials[CredPassword])
}

func TestShadowsocks_PluginQuery(t *testing.T) {
	in := "ss://aes-256-gcm:pw@1.2.3.4:8388?plugin=v2ray-plugin%3Btls%3Bhost%3Dx.example"
	res := New(DefaultProfile()).Parse("shadowsocks", in)

	require.True(t, res.Parsed)
	assert.Equal(t, "v2ray-plugin;tls;host=x.example", res.Config.Transport["plugin"])
}

func TestShadowsocks_BracketedIPv6Host(t *testing.T) {
	in := "ss://aes-256-gcm:pw@[2001:db8::1]:8388"
	res := New(DefaultProfile()).Parse("shadowsocks", in)

	require.True(t, res.Parsed, "errors: %v", res.Errors)
	require.NotNil(t, res.Config.Endpoint)
	assert.Equal(t, "2001:db8::1", res.Config.Endpoint.Host)
	assert.Equal(t, 8388, res.Config.Endpoint.Port)
}

func TestShadowsocks_NonNumericPortFatal(t *testing.T) {
	in := "ss://aes-256-gcm:pw@1.2.3.4:notaport"
	res := New(DefaultProfile()).Parse("shadowsocks", in)

	assert.False(t, res.Parsed)
	assert.NotEmpty(t, res.Errors)
	assert.Nil(t, res.Config.Endpoint)
}

func TestShadowsocks_MissingServerFatal(t *testing.T) {
	res := New(DefaultProfile()).Parse("shadowsocks", "ss://justsomegarbage")
	assert.False(t, res.Parsed)
	assert.NotEmpty(t, res.Errors)
}
