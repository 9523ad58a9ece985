package svcmgr

import "github.com/sentinelos/sentinel/pkg/parser"

// Protocol resource classes. Memory-heavy backends are refused outright
// when available memory is under the floor; CPU-bound backends only draw a
// warning under CPU pressure, since usage is instantaneous and spiky.
var (
	memoryHeavyProtocols = map[parser.Protocol]bool{
		parser.ProtocolXray:      true,
		parser.ProtocolHysteria2: true,
	}

	cpuHeavyProtocols = map[parser.Protocol]bool{
		parser.ProtocolXray:    true,
		parser.ProtocolSingBox: true,
	}
)

// quotaLimit is one limit applied to a backend's quota after launch.
type quotaLimit struct {
	kind  LimitKind
	value uint64
}

// quotaPlan returns the limits to apply for a protocol, or nil when the
// backend runs unconstrained.
func quotaPlan(proto parser.Protocol, memoryFloorMB uint64) []quotaLimit {
	switch {
	case proto == parser.ProtocolTor:
		// Tor is capped harder than the proxies: it tolerates memory
		// pressure poorly and has its own relay-wide CPU appetite.
		return []quotaLimit{
			{kind: LimitMemoryMB, value: memoryFloorMB},
			{kind: LimitCPUPercent, value: 200},
		}
	case memoryHeavyProtocols[proto] && cpuHeavyProtocols[proto]:
		return []quotaLimit{
			{kind: LimitMemoryMB, value: memoryFloorMB},
			{kind: LimitCPUPercent, value: 200},
		}
	case memoryHeavyProtocols[proto]:
		return []quotaLimit{{kind: LimitMemoryMB, value: memoryFloorMB}}
	case cpuHeavyProtocols[proto]:
		return []quotaLimit{{kind: LimitCPUPercent, value: 200}}
	}
	return nil
}
