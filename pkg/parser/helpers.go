package parser

import (
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, err
	}
	if port < 1 || port > 65535 {
		return "", 0, errors.New("port out of range")
	}
	return host, port, nil
}

// parsePort converts a required numeric field. A non-numeric value is a
// fatal decode error for the field, never a panic.
func parsePort(s, field string, res *Result) (int, bool) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		res.errorf("%s: non-numeric value %q", field, s)
		return 0, false
	}
	return port, true
}

func percentDecode(s string, res *Result) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		res.warnf("name is not valid percent-encoding: %v", err)
		return s
	}
	return strings.TrimSpace(decoded)
}

// parseQuery splits a raw query without net/url so that values carrying
// semicolons (SIP002 plugin options) survive. First value per key wins.
func parseQuery(query string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if _, dup := out[key]; !dup {
			out[key] = value
		}
	}
	return out
}

// b64Encodings is the decode order for loosely-encoded payloads: standard
// with padding first, then URL-safe, then the unpadded variants.
var b64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

func decodeBase64Loose(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, enc := range b64Encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
