// Package clientip resolves the real client address behind trusted reverse
// proxies. Forwarded headers are only honored when the direct peer is a
// known proxy network.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

type Resolver struct {
	trustedProxies []*net.IPNet
}

// NewResolver trusts localhost and the private RFC1918 ranges by default.
func NewResolver() *Resolver {
	return &Resolver{
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

// AddTrustedProxy adds a proxy network whose forwarded headers are honored.
func (res *Resolver) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return err
	}
	res.trustedProxies = append(res.trustedProxies, network)
	return nil
}

// FromRequest returns the best-effort client IP for a request.
func (res *Resolver) FromRequest(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !res.trusted(parsed) {
		return directIP
	}

	// X-Forwarded-For may list several hops; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}

func (res *Resolver) trusted(ip net.IP) bool {
	for _, network := range res.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic("clientip: bad built-in CIDR " + cidr)
	}
	return network
}
