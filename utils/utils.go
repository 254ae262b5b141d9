// Package utils provides request helpers used when recording clicks.
package utils

import (
	"net"
	"net/url"
	"strings"
)

// DirectSource labels clicks that carry no referring origin.
const DirectSource = "Direct"

// RequestSource derives the origin a click came from. The Referer header
// wins over Origin; only scheme and host are kept.
func RequestSource(referer, origin string) string {
	for _, candidate := range []string{referer, origin} {
		if source := originOf(candidate); source != "" {
			return source
		}
	}
	return DirectSource
}

func originOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// IsPrivateIP reports whether ip is loopback, link-local or in a private range.
// Unparseable addresses count as private so they never reach a geo lookup.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}
