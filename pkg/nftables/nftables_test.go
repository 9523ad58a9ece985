package nftables

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func recordingRun(calls *[]call, out []byte, err error) runFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return out, err
	}
}

func TestApplyRulesetWritesTempFile(t *testing.T) {
	var calls []call
	var content string
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		data, err := os.ReadFile(args[1])
		require.NoError(t, err)
		content = string(data)
		return nil, nil
	}

	a := New(withRun(run))
	ruleset := "table inet sentinel {\n  set tunnel_endpoints { type ipv4_addr; }\n}\n"
	require.NoError(t, a.ApplyRuleset(context.Background(), ruleset))

	require.Len(t, calls, 1)
	assert.Equal(t, "nft", calls[0].name)
	assert.Equal(t, "-f", calls[0].args[0])
	assert.Equal(t, ruleset, content)
}

func TestApplyRulesetReportsNftOutput(t *testing.T) {
	var calls []call
	a := New(withRun(recordingRun(&calls, []byte("syntax error near line 3"), errors.New("exit status 1"))))

	err := a.ApplyRuleset(context.Background(), "garbage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error near line 3")
}

func TestAddElement(t *testing.T) {
	var calls []call
	a := New(withRun(recordingRun(&calls, nil, nil)))

	require.NoError(t, a.AddElement(context.Background(), "tunnel_endpoints", "203.0.113.7"))

	require.Len(t, calls, 1)
	assert.Equal(t, []string{"add", "element", "inet", "sentinel", "tunnel_endpoints", "{ 203.0.113.7 }"}, calls[0].args)
}

func TestBinaryOverride(t *testing.T) {
	var calls []call
	a := New(WithBinary("/usr/local/sbin/nft"), withRun(recordingRun(&calls, nil, nil)))

	require.NoError(t, a.AddElement(context.Background(), "s", "v"))
	assert.Equal(t, "/usr/local/sbin/nft", calls[0].name)
}
