package parser

import "strconv"

// maxVirtIOQueues caps multiqueue hints; VirtIO gains nothing past 8.
const maxVirtIOQueues = 8

// tuningHints derives the advisory host-tuning annotations for a protocol.
// These are suggestions for the launch path, never validated state.
func (p *Parser) tuningHints(proto Protocol) map[string]string {
	queues := p.profile.CPUCount
	if queues > maxVirtIOQueues {
		queues = maxVirtIOQueues
	}

	hints := map[string]string{}

	switch proto {
	case ProtocolWireGuard, ProtocolAmneziaWG:
		hints["multiqueue"] = "true"
		hints["rx_queues"] = strconv.Itoa(queues)
		hints["tx_queues"] = strconv.Itoa(queues)
		hints["vhost_net"] = "true"

	case ProtocolXray, ProtocolSingBox:
		hints["tcp_fastopen"] = "true"
		hints["bbr_congestion"] = "true"
		hints["multicore"] = "true"
		hints["sniffing"] = "true"

	case ProtocolTrojan, ProtocolShadowsocks:
		hints["tcp_fastopen"] = "true"
		hints["reuse_port"] = "true"

	case ProtocolOpenVPN:
		hints["tun_queue"] = strconv.Itoa(p.profile.VirtIOQueues)
		hints["tcp_fastopen"] = "true"

	case ProtocolHysteria2:
		hints["quic"] = "true"
		hints["bbr_congestion"] = "true"
		hints["fast_open"] = "true"

	case ProtocolTor:
		cpus := p.profile.CPUCount
		if cpus > 2 {
			cpus = 2
		}
		hints["num_cpus"] = strconv.Itoa(cpus)
		hints["max_mem_mb"] = "512"

	case ProtocolDPIBypass:
		hints["nfqueue"] = strconv.Itoa(p.profile.VirtIOQueues)
	}

	return hints
}
