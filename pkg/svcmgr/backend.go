package svcmgr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentinelos/sentinel/pkg/parser"
)

// wgKeyCase maps the lower-cased keys the parser produces back to the
// casing wg-quick and awg-quick expect.
var wgKeyCase = map[string]string{
	"address": "Address", "dns": "DNS", "mtu": "MTU", "table": "Table",
	"listenport": "ListenPort", "fwmark": "FwMark",
	"presharedkey": "PresharedKey", "publickey": "PublicKey",
	"allowedips": "AllowedIPs", "endpoint": "Endpoint",
	"persistentkeepalive": "PersistentKeepalive",
	"jc":                  "Jc", "jmin": "Jmin", "jmax": "Jmax",
	"s1": "S1", "s2": "S2",
	"h1": "H1", "h2": "H2", "h3": "H3", "h4": "H4",
}

func wgKey(k string) string {
	if cased, ok := wgKeyCase[k]; ok {
		return cased
	}
	return k
}

// dpiTools maps the concrete DPI-evasion tool name to its binary.
var dpiTools = map[string]string{
	"zapret":     "nfqws",
	"byedpi":     "ciadpi",
	"goodbyedpi": "goodbyedpi",
}

// WriteArtifact renders cfg into the backend's native config file under dir
// and returns the launch contract for it. Artifacts carry credentials and
// are written mode 0600.
func WriteArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	if cfg == nil {
		return LaunchSpec{}, ErrInvalidConfig(name, "no canonical config attached")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}

	switch cfg.Protocol {
	case parser.ProtocolWireGuard:
		return writeWireGuardArtifact(dir, name, cfg, "wg-quick")
	case parser.ProtocolAmneziaWG:
		return writeWireGuardArtifact(dir, name, cfg, "awg-quick")
	case parser.ProtocolOpenVPN:
		return writeOpenVPNArtifact(dir, name, cfg)
	case parser.ProtocolXray:
		return writeXrayArtifact(dir, name, cfg)
	case parser.ProtocolSingBox:
		return writeSingBoxArtifact(dir, name, cfg)
	case parser.ProtocolShadowsocks:
		return writeShadowsocksArtifact(dir, name, cfg)
	case parser.ProtocolTrojan:
		return writeTrojanArtifact(dir, name, cfg)
	case parser.ProtocolHysteria2:
		return writeHysteria2Artifact(dir, name, cfg)
	case parser.ProtocolTor:
		return writeTorArtifact(dir, name, cfg)
	case parser.ProtocolDPIBypass:
		return dpiLaunchSpec(cfg), nil
	}
	return LaunchSpec{}, ErrInvalidConfig(name, fmt.Sprintf("protocol %q is not launchable", cfg.Protocol))
}

func writeArtifactFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

// sortedKeys keeps artifact output deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeWireGuardArtifact(dir, name string, cfg *parser.CanonicalConfig, tool string) (LaunchSpec, error) {
	var b strings.Builder
	b.WriteString("[Interface]\n")
	if key := cfg.Credentials[parser.CredPrivateKey]; key != "" {
		fmt.Fprintf(&b, "PrivateKey = %s\n", key)
	}
	for _, k := range sortedKeys(cfg.Transport) {
		fmt.Fprintf(&b, "%s = %s\n", wgKey(k), cfg.Transport[k])
	}
	for _, peer := range cfg.Peers {
		b.WriteString("\n[Peer]\n")
		for _, k := range sortedKeys(peer) {
			fmt.Fprintf(&b, "%s = %s\n", wgKey(k), peer[k])
		}
	}

	path := filepath.Join(dir, name+".conf")
	if err := writeArtifactFile(path, b.String()); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      tool,
		Args:         []string{"up", path},
		ArtifactPath: path,
		ProcessName:  tool,
		// wg-quick configures the kernel interface and exits.
		OneShot: true,
	}, nil
}

func writeOpenVPNArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	var b strings.Builder
	b.WriteString("client\nnobind\npersist-key\npersist-tun\n")
	if cfg.Endpoint != nil {
		proto := cfg.Transport["proto"]
		if proto == "" {
			proto = "udp"
		}
		fmt.Fprintf(&b, "remote %s %d %s\n", cfg.Endpoint.Host, cfg.Endpoint.Port, proto)
	}
	for _, directive := range []string{"dev", "cipher", "auth"} {
		if v := cfg.Transport[directive]; v != "" {
			fmt.Fprintf(&b, "%s %s\n", directive, v)
		}
	}
	if cfg.Transport["auth_user_pass"] == "true" {
		if file := cfg.Transport["auth_file"]; file != "" {
			fmt.Fprintf(&b, "auth-user-pass %s\n", file)
		} else {
			b.WriteString("auth-user-pass\n")
		}
	}
	// Inline tag bodies survive parsing verbatim and are re-emitted as-is.
	for _, k := range sortedKeys(cfg.Transport) {
		tag, ok := strings.CutPrefix(k, "inline_")
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "<%s>\n%s\n</%s>\n", tag, cfg.Transport[k], tag)
	}

	path := filepath.Join(dir, name+".conf")
	pidFile := filepath.Join(dir, name+".pid")
	if err := writeArtifactFile(path, b.String()); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "openvpn",
		Args:         []string{"--config", path, "--daemon", "--writepid", pidFile},
		ArtifactPath: path,
		PIDFile:      pidFile,
		ProcessName:  "openvpn",
	}, nil
}

// xrayOutbound mirrors the subset of the Xray outbound schema the writer
// synthesizes from a link-derived config.
type xrayOutbound struct {
	Protocol string         `json:"protocol"`
	Settings map[string]any `json:"settings"`
	Stream   map[string]any `json:"streamSettings,omitempty"`
}

func writeXrayArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	raw := strings.TrimSpace(cfg.Raw)

	var content string
	if strings.HasPrefix(raw, "{") {
		// Full JSON configs pass through untouched.
		content = raw
	} else {
		doc, err := synthesizeXrayConfig(cfg)
		if err != nil {
			return LaunchSpec{}, ErrInvalidConfig(name, err.Error())
		}
		content = doc
	}

	path := filepath.Join(dir, name+".json")
	if err := writeArtifactFile(path, content); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "xray",
		Args:         []string{"run", "-config", path},
		ArtifactPath: path,
		ProcessName:  "xray",
	}, nil
}

func synthesizeXrayConfig(cfg *parser.CanonicalConfig) (string, error) {
	if cfg.Endpoint == nil {
		return "", fmt.Errorf("no endpoint to build an outbound from")
	}

	proto := cfg.Transport["protocol"]
	server := map[string]any{
		"address": cfg.Endpoint.Host,
		"port":    cfg.Endpoint.Port,
	}
	settings := map[string]any{}
	switch proto {
	case "vless":
		server["users"] = []map[string]any{{
			"id":         cfg.Credentials[parser.CredUUID],
			"encryption": cfg.Transport["encryption"],
			"flow":       cfg.Transport["flow"],
		}}
		settings["vnext"] = []map[string]any{server}
	case "vmess":
		user := map[string]any{"id": cfg.Credentials[parser.CredUUID]}
		if aid := cfg.Transport["alter_id"]; aid != "" {
			user["alterId"] = aid
		}
		server["users"] = []map[string]any{user}
		settings["vnext"] = []map[string]any{server}
	default:
		return "", fmt.Errorf("cannot synthesize an outbound for %q", proto)
	}

	stream := map[string]any{
		"network":  cfg.Transport["network"],
		"security": cfg.Transport["security"],
	}
	if cfg.Transport["security"] == "reality" {
		stream["realitySettings"] = map[string]any{
			"publicKey":   cfg.Transport["reality_public_key"],
			"shortId":     cfg.Transport["reality_short_id"],
			"serverName":  cfg.Transport["reality_server_name"],
			"fingerprint": cfg.Transport["fingerprint"],
		}
	}
	if cfg.Transport["network"] == "ws" {
		ws := map[string]any{"path": cfg.Transport["ws_path"]}
		if host := cfg.Transport["ws_host"]; host != "" {
			ws["headers"] = map[string]any{"Host": host}
		}
		stream["wsSettings"] = ws
	}

	doc := map[string]any{
		"inbounds": []map[string]any{{
			"listen":   "127.0.0.1",
			"port":     1080,
			"protocol": "socks",
			"settings": map[string]any{"udp": true},
		}},
		"outbounds": []xrayOutbound{{
			Protocol: proto,
			Settings: settings,
			Stream:   stream,
		}},
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func writeSingBoxArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	path := filepath.Join(dir, name+".json")
	if err := writeArtifactFile(path, cfg.Raw); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "sing-box",
		Args:         []string{"run", "-c", path},
		ArtifactPath: path,
		ProcessName:  "sing-box",
	}, nil
}

func writeShadowsocksArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	if cfg.Endpoint == nil {
		return LaunchSpec{}, ErrInvalidConfig(name, "shadowsocks config has no server endpoint")
	}
	doc := map[string]any{
		"server":      cfg.Endpoint.Host,
		"server_port": cfg.Endpoint.Port,
		"method":      cfg.Transport["method"],
		"password":    cfg.Credentials[parser.CredPassword],
		"local_addr":  "127.0.0.1",
		"local_port":  1081,
		"mode":        "tcp_and_udp",
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}

	path := filepath.Join(dir, name+".json")
	pidFile := filepath.Join(dir, name+".pid")
	if err := writeArtifactFile(path, string(out)); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "ss-local",
		Args:         []string{"-c", path, "-f", pidFile},
		ArtifactPath: path,
		PIDFile:      pidFile,
		ProcessName:  "ss-local",
	}, nil
}

func writeTrojanArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	if cfg.Endpoint == nil {
		return LaunchSpec{}, ErrInvalidConfig(name, "trojan config has no server endpoint")
	}
	doc := map[string]any{
		"run_type":    "client",
		"local_addr":  "127.0.0.1",
		"local_port":  1082,
		"remote_addr": cfg.Endpoint.Host,
		"remote_port": cfg.Endpoint.Port,
		"password":    []string{cfg.Credentials[parser.CredPassword]},
	}
	if sni := cfg.Transport["sni"]; sni != "" {
		doc["ssl"] = map[string]any{"sni": sni}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}

	path := filepath.Join(dir, name+".json")
	if err := writeArtifactFile(path, string(out)); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "trojan",
		Args:         []string{"-c", path},
		ArtifactPath: path,
		ProcessName:  "trojan",
	}, nil
}

func writeHysteria2Artifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	if cfg.Endpoint == nil {
		return LaunchSpec{}, ErrInvalidConfig(name, "hysteria2 config has no server endpoint")
	}
	doc := map[string]any{
		"server": fmt.Sprintf("%s:%d", cfg.Endpoint.Host, cfg.Endpoint.Port),
		"socks5": map[string]any{"listen": "127.0.0.1:1083"},
	}
	if auth := cfg.Credentials[parser.CredAuthToken]; auth != "" {
		doc["auth"] = auth
	}
	bandwidth := map[string]any{}
	if up := cfg.Transport["up_mbps"]; up != "" {
		bandwidth["up"] = up + " mbps"
	}
	if down := cfg.Transport["down_mbps"]; down != "" {
		bandwidth["down"] = down + " mbps"
	}
	if len(bandwidth) > 0 {
		doc["bandwidth"] = bandwidth
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}

	path := filepath.Join(dir, name+".yaml")
	if err := writeArtifactFile(path, string(out)); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "hysteria",
		Args:         []string{"client", "-c", path},
		ArtifactPath: path,
		ProcessName:  "hysteria",
	}, nil
}

func writeTorArtifact(dir, name string, cfg *parser.CanonicalConfig) (LaunchSpec, error) {
	// torrc option names are case-insensitive to tor; canonical casing is
	// only for readability.
	casing := map[string]string{
		"socksport":     "SocksPort",
		"controlport":   "ControlPort",
		"datadirectory": "DataDirectory",
		"exitrelay":     "ExitRelay",
	}

	var b strings.Builder
	for _, k := range sortedKeys(cfg.Transport) {
		key := casing[k]
		if key == "" {
			key = k
		}
		fmt.Fprintf(&b, "%s %s\n", key, cfg.Transport[k])
	}
	if _, ok := cfg.Transport["datadirectory"]; !ok {
		fmt.Fprintf(&b, "DataDirectory %s\n", filepath.Join(dir, name+".data"))
	}
	pidFile := filepath.Join(dir, name+".pid")
	fmt.Fprintf(&b, "PidFile %s\n", pidFile)
	b.WriteString("RunAsDaemon 0\n")

	path := filepath.Join(dir, name+".torrc")
	if err := writeArtifactFile(path, b.String()); err != nil {
		return LaunchSpec{}, ErrLaunchFailed(name, "", err)
	}
	return LaunchSpec{
		Backend:      "tor",
		Args:         []string{"-f", path},
		ArtifactPath: path,
		PIDFile:      pidFile,
		ProcessName:  "tor",
	}, nil
}

// dpiLaunchSpec rebuilds the argv captured at parse time; DPI tools take
// no config file.
func dpiLaunchSpec(cfg *parser.CanonicalConfig) LaunchSpec {
	tool := cfg.Transport["tool"]
	binary := dpiTools[tool]
	if binary == "" {
		binary = "nfqws"
	}

	var args []string
	for _, k := range sortedKeys(cfg.Transport) {
		if k == "tool" {
			continue
		}
		if cfg.Transport[k] == "true" {
			args = append(args, "--"+k)
		} else {
			args = append(args, "--"+k, cfg.Transport[k])
		}
	}
	return LaunchSpec{
		Backend:     binary,
		Args:        args,
		ProcessName: binary,
	}
}
