// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/parley-chat/parley/internal/platform/constants"
)

// TrustedProxies lists the reverse proxies allowed to report the client
// address through X-Real-IP and X-Forwarded-For. The nil value trusts no one,
// so the TCP peer is always the client.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies reads TRUSTED_PROXIES entries. Each is a CIDR range or
// a single address.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("middleware: invalid trusted proxy %q", entry)
		}
		proxies = append(proxies, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return proxies, nil
}

func (proxies TrustedProxies) contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address the rate limiter and access log key on.
//
// Forwarding headers are only read when the TCP peer is a trusted proxy.
// X-Forwarded-For is walked from the right and the first hop that is not
// itself a trusted proxy wins.
func (proxies TrustedProxies) ClientIP(request *http.Request) string {
	peer := peerAddr(request)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !proxies.contains(addr) {
		return peer
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !proxies.contains(hop) {
				return hop.Unmap().String()
			}
		}
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP))); err == nil {
		return realIP.Unmap().String()
	}
	return peer
}

func peerAddr(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
