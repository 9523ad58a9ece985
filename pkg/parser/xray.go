package parser

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// decodeXray covers the Xray family: vless:// and vmess:// links,
// trojan:// links (Xray's transport engine runs those too) and full JSON
// configs.
func (p *Parser) decodeXray(raw string, res *Result) *CanonicalConfig {
	data := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(data, "vless://"):
		return p.decodeVLESS(data, res)
	case strings.HasPrefix(data, "vmess://"):
		return p.decodeVMess(data, res)
	case strings.HasPrefix(data, "trojan://"):
		return p.decodeTrojanURL(data, res)
	case strings.HasPrefix(data, "{"):
		return p.decodeXrayJSON(data, res)
	}

	res.errorf("xray: unrecognized input (expected vless://, vmess://, trojan:// or JSON)")
	return newCanonical(ProtocolXray, raw)
}

func (p *Parser) decodeVLESS(data string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolXray, data)
	cfg.Transport["protocol"] = "vless"
	cfg.Transport["network"] = "tcp"
	cfg.Transport["security"] = "none"
	cfg.Transport["encryption"] = "none"

	u, err := url.Parse(data)
	if err != nil {
		res.errorf("vless: malformed url: %v", err)
		return cfg
	}

	if u.User != nil {
		id := u.User.Username()
		cfg.Credentials[CredUUID] = id
		if _, err := uuid.Parse(id); err != nil {
			res.warnf("vless: id is not a valid uuid")
		}
	}

	host := u.Hostname()
	port := 443
	if raw := u.Port(); raw != "" {
		var ok bool
		if port, ok = parsePort(raw, "vless port", res); !ok {
			return cfg
		}
	}
	cfg.Endpoint = &Endpoint{Host: host, Port: port}

	params := parseQuery(u.RawQuery)
	if v, ok := params["type"]; ok {
		cfg.Transport["network"] = v
	}
	if v, ok := params["security"]; ok {
		cfg.Transport["security"] = v
	}
	if v, ok := params["flow"]; ok {
		cfg.Transport["flow"] = v
	}
	if pbk, ok := params["pbk"]; ok {
		// Reality parameters: public key, short id, server name.
		cfg.Transport["security"] = "reality"
		cfg.Transport["reality_public_key"] = pbk
		cfg.Transport["reality_short_id"] = params["sid"]
		if sni, ok := params["sni"]; ok {
			cfg.Transport["reality_server_name"] = sni
		} else {
			cfg.Transport["reality_server_name"] = host
		}
	}
	if fp, ok := params["fp"]; ok {
		cfg.Transport["fingerprint"] = fp
	}

	if u.Fragment != "" {
		cfg.Name = percentDecode(u.Fragment, res)
	}

	return cfg
}

// vmessPayload is the base64-wrapped JSON object a vmess:// link carries.
// Numeric fields arrive as either numbers or strings in the wild, so they
// decode through json.Number-tolerant raw strings.
type vmessPayload struct {
	ID   string      `json:"id"`
	Add  string      `json:"add"`
	Port json.Number `json:"port"`
	Aid  json.Number `json:"aid"`
	Net  string      `json:"net"`
	TLS  string      `json:"tls"`
	Path string      `json:"path"`
	Host string      `json:"host"`
	PS   string      `json:"ps"`
}

func (p *Parser) decodeVMess(data string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolXray, data)
	cfg.Transport["protocol"] = "vmess"

	payload := strings.TrimPrefix(data, "vmess://")
	decoded, err := decodeBase64Loose(payload)
	if err != nil {
		res.errorf("vmess: payload is not valid base64: %v", err)
		return cfg
	}

	var vm vmessPayload
	if err := json.Unmarshal(decoded, &vm); err != nil {
		res.errorf("vmess: payload is not valid JSON: %v", err)
		return cfg
	}

	cfg.Credentials[CredUUID] = vm.ID
	if vm.ID != "" {
		if _, err := uuid.Parse(vm.ID); err != nil {
			res.warnf("vmess: id is not a valid uuid")
		}
	}
	cfg.Name = vm.PS

	port := 443
	if vm.Port != "" {
		var ok bool
		if port, ok = parsePort(vm.Port.String(), "vmess port", res); !ok {
			return cfg
		}
	}
	cfg.Endpoint = &Endpoint{Host: vm.Add, Port: port}

	if vm.Aid != "" {
		if _, err := strconv.Atoi(vm.Aid.String()); err != nil {
			res.errorf("vmess aid: non-numeric value %q", vm.Aid.String())
			return cfg
		}
		cfg.Transport["alter_id"] = vm.Aid.String()
	}

	network := vm.Net
	if network == "" {
		network = "tcp"
	}
	cfg.Transport["network"] = network
	security := vm.TLS
	if security == "" {
		security = "none"
	}
	cfg.Transport["security"] = security

	if vm.Path != "" && network == "ws" {
		cfg.Transport["ws_path"] = vm.Path
		cfg.Transport["ws_host"] = vm.Host
	}

	return cfg
}

func (p *Parser) decodeTrojanURL(data string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolTrojan, data)
	cfg.Transport["network"] = "tcp"
	cfg.Transport["security"] = "tls"

	u, err := url.Parse(data)
	if err != nil {
		res.errorf("trojan: malformed url: %v", err)
		return cfg
	}

	if u.User != nil {
		cfg.Credentials[CredPassword] = u.User.Username()
	}

	port := 443
	if raw := u.Port(); raw != "" {
		var ok bool
		if port, ok = parsePort(raw, "trojan port", res); !ok {
			return cfg
		}
	}
	cfg.Endpoint = &Endpoint{Host: u.Hostname(), Port: port}

	params := parseQuery(u.RawQuery)
	if sni, ok := params["sni"]; ok {
		cfg.Transport["sni"] = sni
	}
	if typ, ok := params["type"]; ok {
		cfg.Transport["network"] = typ
	}

	if u.Fragment != "" {
		cfg.Name = percentDecode(u.Fragment, res)
	}

	return cfg
}

func (p *Parser) decodeXrayJSON(data string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolXray, data)

	var doc struct {
		Inbounds  []json.RawMessage `json:"inbounds"`
		Outbounds []struct {
			Protocol string            `json:"protocol"`
			Settings json.RawMessage   `json:"settings"`
			Stream   map[string]any    `json:"streamSettings"`
		} `json:"outbounds"`
	}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		res.errorf("xray: malformed JSON: %v", err)
		return cfg
	}

	cfg.Transport["inbounds"] = strconv.Itoa(len(doc.Inbounds))
	cfg.Transport["outbounds"] = strconv.Itoa(len(doc.Outbounds))

	if len(doc.Outbounds) > 0 {
		first := doc.Outbounds[0]
		cfg.Transport["protocol"] = first.Protocol
		if network, ok := first.Stream["network"].(string); ok {
			cfg.Transport["network"] = network
		}
		if security, ok := first.Stream["security"].(string); ok {
			cfg.Transport["security"] = security
		}
	}

	return cfg
}

// decodeTrojan accepts either a trojan:// link or a raw trojan JSON config.
func (p *Parser) decodeTrojan(raw string, res *Result) *CanonicalConfig {
	data := strings.TrimSpace(raw)
	if strings.HasPrefix(data, "trojan://") {
		return p.decodeTrojanURL(data, res)
	}

	cfg := newCanonical(ProtocolTrojan, raw)
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		res.errorf("trojan: input is neither a trojan:// link nor valid JSON")
		return cfg
	}
	cfg.Transport["format"] = "json"
	return cfg
}
