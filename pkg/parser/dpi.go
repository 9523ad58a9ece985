package parser

import "strings"

// decodeDPIBypass parses the command-line style configs the DPI-evasion
// tools take: "--flag value" pairs and bare "--flag" switches. The concrete
// tool name (zapret, byedpi, goodbyedpi) is carried in Transport["tool"]
// when the caller named one.
func (p *Parser) decodeDPIBypass(tool, raw string, res *Result) *CanonicalConfig {
	cfg := newCanonical(ProtocolDPIBypass, raw)
	if tool != "" {
		cfg.Transport["tool"] = tool
	}

	args := strings.Fields(raw)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		key := strings.TrimPrefix(arg, "--")
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			cfg.Transport[key] = args[i+1]
			i++
		} else {
			cfg.Transport[key] = "true"
		}
	}

	return cfg
}
