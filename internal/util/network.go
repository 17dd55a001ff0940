// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net"
	"net/http"
	"strings"

	"github.com/olegiv/oblog/internal/model"
)

// MaxUserAgentLength bounds stored user agent strings.
const MaxUserAgentLength = 512

// privateIPBlocks contains CIDR ranges for private/reserved IP addresses.
var privateIPBlocks []*net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",     // RFC 1918 - private
		"172.16.0.0/12",  // RFC 1918 - private
		"192.168.0.0/16", // RFC 1918 - private
		"127.0.0.0/8",    // RFC 1122 - loopback
		"169.254.0.0/16", // RFC 3927 - link-local
		"0.0.0.0/8",      // RFC 1122 - "this" network
		"100.64.0.0/10",  // RFC 6598 - shared address (CGNAT)
		"::1/128",        // IPv6 loopback
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // RFC 4193 - IPv6 unique local
		"::/128",         // IPv6 unspecified
	}
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			privateIPBlocks = append(privateIPBlocks, block)
		}
	}
}

// IsPrivateIP checks if an IP address falls within a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the request's client address without the port. It relies
// on RemoteAddr having been rewritten by chi's RealIP middleware.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// RequestInfo captures the client address and user agent of r.
func RequestInfo(r *http.Request) model.RequestInfo {
	ua := r.UserAgent()
	if len(ua) > MaxUserAgentLength {
		ua = ua[:MaxUserAgentLength]
	}
	return model.RequestInfo{
		IPAddress: ClientIP(r),
		UserAgent: ua,
	}
}
