package parser

// validate runs protocol-specific required-field checks after a decode
// succeeded structurally. Gaps are warnings: a missing optional field never
// downgrades Parsed, only structurally fatal decode errors do.
func (p *Parser) validate(res *Result) {
	cfg := res.Config
	if cfg == nil {
		return
	}

	switch res.Protocol {
	case ProtocolWireGuard, ProtocolAmneziaWG:
		if cfg.Credentials[CredPrivateKey] == "" {
			res.warnf("missing interface private key")
		}
		if len(cfg.Peers) == 0 {
			res.warnf("no peers configured")
		}

	case ProtocolOpenVPN:
		if cfg.Endpoint == nil {
			res.warnf("no remote server configured")
		}

	case ProtocolXray, ProtocolTrojan, ProtocolShadowsocks, ProtocolHysteria2:
		if cfg.Endpoint == nil || cfg.Endpoint.Host == "" {
			res.warnf("missing server address")
		} else if cfg.Endpoint.Port == 0 {
			res.warnf("missing server port")
		}
	}
}
