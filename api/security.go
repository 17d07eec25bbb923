package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyTrust resolves the client address of a request. Forwarding headers
// are honoured only when the direct peer falls inside a trusted prefix.
type proxyTrust struct {
	enabled  bool
	prefixes []netip.Prefix
}

// newProxyTrust parses the configured networks once. A bare address is
// treated as a single-host prefix; entries that do not parse are skipped
// since config validation already rejected them.
func newProxyTrust(enabled bool, networks []string) proxyTrust {
	pt := proxyTrust{enabled: enabled}
	for _, network := range networks {
		if strings.Contains(network, "/") {
			if prefix, err := netip.ParsePrefix(network); err == nil {
				pt.prefixes = append(pt.prefixes, prefix.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(network); err == nil {
			pt.prefixes = append(pt.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return pt
}

func (pt proxyTrust) trusts(peer string) bool {
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range pt.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the address rate limiting and request logs key on.
func (pt proxyTrust) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !pt.enabled || !pt.trusts(peer) {
		return peer
	}

	// The left-most X-Forwarded-For entry is the originating client
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(r.Header.Get("X-Real-IP")); err == nil {
		return addr.String()
	}
	return peer
}
