// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"fmt"
	"net"
	"strings"

	"github.com/mileusna/useragent"
)

// Browser names produced by ClassifyBrowser.
const (
	BrowserEdge    = "Edge"
	BrowserOpera   = "Opera"
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserOther   = "Other"
	BrowserUnknown = "Unknown"
)

// browserMarkers is checked in order. Edge and Opera both also send
// "Chrome", and Chrome also sends "Safari", so the order is significant.
var browserMarkers = []struct {
	name    string
	markers []string
}{
	{BrowserEdge, []string{"Edg"}},
	{BrowserOpera, []string{"OPR", "Opera"}},
	{BrowserChrome, []string{"Chrome", "CriOS"}},
	{BrowserFirefox, []string{"Firefox", "FxiOS"}},
	{BrowserSafari, []string{"Safari"}},
}

// ClassifyBrowser maps a raw user agent to one of a fixed set of browser
// names by substring match. An empty agent is Unknown; an unmatched one is
// Other.
func ClassifyBrowser(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return BrowserUnknown
	}
	for _, b := range browserMarkers {
		for _, m := range b.markers {
			if strings.Contains(ua, m) {
				return b.name
			}
		}
	}
	return BrowserOther
}

// Agent is the platform part of a user agent.
type Agent struct {
	OS     string
	Device string
}

// DescribeAgent extracts the operating system and device class of ua.
func DescribeAgent(ua string) Agent {
	if strings.TrimSpace(ua) == "" {
		return Agent{OS: BrowserUnknown, Device: BrowserUnknown}
	}

	parsed := useragent.Parse(ua)
	a := Agent{OS: parsed.OS}
	if a.OS == "" {
		a.OS = BrowserUnknown
	}

	switch {
	case parsed.Bot:
		a.Device = "bot"
	case parsed.Tablet:
		a.Device = "tablet"
	case parsed.Mobile:
		a.Device = "mobile"
	default:
		a.Device = "desktop"
	}
	return a
}

// MaskIP hides the host part of an address for display. IPv4 keeps the
// first two octets (203.0.***.***); IPv6 keeps the first two groups. An
// empty address reads Unknown; anything unparseable is fully masked.
func MaskIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" || strings.EqualFold(ip, "unknown") {
		return BrowserUnknown
	}

	parsed := net.ParseIP(ip)
	switch {
	case parsed == nil:
		return "***"
	case parsed.To4() != nil:
		v4 := parsed.To4()
		return fmt.Sprintf("%d.%d.***.***", v4[0], v4[1])
	default:
		groups := strings.SplitN(parsed.String(), ":", 3)
		if len(groups) < 3 {
			return "***"
		}
		return groups[0] + ":" + groups[1] + ":***"
	}
}
