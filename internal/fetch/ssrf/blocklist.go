package ssrf

import "strings"

// blockedHostnames is the static hostname blocklist: localhost variants,
// cloud-metadata hostnames and Kubernetes service names. Matching is exact
// or as a dot-suffix subdomain (evil.localhost is blocked like localhost).
var blockedHostnames = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
	"ip6-localhost":         {},
	"ip6-loopback":          {},

	"metadata.google.internal": {}, // GCP metadata
	"metadata":                 {}, // generic cloud metadata
	"instance-data":            {}, // AWS instance metadata hostname

	"kubernetes.default":                   {},
	"kubernetes.default.svc":               {},
	"kubernetes.default.svc.cluster.local": {},
}

// NormalizeHostname lowercases a hostname and strips a single trailing dot.
func NormalizeHostname(host string) string {
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// IsBlockedHostname reports whether the normalized hostname matches the
// static blocklist exactly or as a subdomain of a blocked entry.
func IsBlockedHostname(host string) bool {
	host = NormalizeHostname(host)
	if _, found := blockedHostnames[host]; found {
		return true
	}
	for blocked := range blockedHostnames {
		if strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}
