package ssrf

import (
	"fmt"
	"net"
)

// Classification describes the outcome of host/address inspection. It is
// derived per request and never persisted; keeping it a tagged value (rather
// than a bool) preserves the "why" for error messages and audit events.
type Classification string

const (
	ClassWhitelisted       Classification = "whitelisted"
	ClassBlockedHostname   Classification = "blocked_hostname"
	ClassObfuscatedPrivate Classification = "obfuscated_private"
	ClassObfuscatedPublic  Classification = "obfuscated_public"
	ClassPrivateIP         Classification = "private_ip"
	ClassPublicIP          Classification = "public_ip"
	ClassUnresolved        Classification = "unresolved_hostname"
)

// dangerousRanges contains every private and reserved range that must never
// be reached on behalf of a caller.
var dangerousRanges []*net.IPNet

// metadataIPs are cloud-provider metadata endpoints enumerated explicitly.
// 169.254.169.254 and 169.254.170.2 are already inside 169.254.0.0/16, but
// keeping them listed makes the intent auditable and covers the IPv6 forms.
var metadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean, OpenStack
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6 metadata
	net.ParseIP("fc00:ec2::254"),   // AWS IPv6 metadata (alternate)
}

func init() {
	cidrs := []string{
		// IPv4
		"127.0.0.0/8",        // loopback
		"10.0.0.0/8",         // RFC 1918
		"172.16.0.0/12",      // RFC 1918
		"192.168.0.0/16",     // RFC 1918
		"169.254.0.0/16",     // link-local (includes cloud metadata)
		"100.64.0.0/10",      // CGNAT (RFC 6598)
		"0.0.0.0/8",          // "this" network, includes unspecified
		"192.0.0.0/24",       // IETF protocol assignments
		"192.0.2.0/24",       // TEST-NET-1
		"198.18.0.0/15",      // benchmarking (RFC 2544)
		"198.51.100.0/24",    // TEST-NET-2
		"203.0.113.0/24",     // TEST-NET-3
		"224.0.0.0/4",        // multicast
		"240.0.0.0/4",        // reserved (includes broadcast)

		// IPv6
		"::1/128",       // loopback
		"::/128",        // unspecified
		"100::/64",      // discard-only
		"2001:db8::/32", // documentation
		"fe80::/10",     // link-local
		"fec0::/10",     // deprecated site-local
		"fc00::/7",      // unique local (RFC 4193)
		"ff00::/8",      // multicast
	}

	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in dangerous ranges: %s", cidr))
		}
		dangerousRanges = append(dangerousRanges, ipNet)
	}
}

// IsDangerousIP reports whether the given IP must never be connected to.
// A nil IP is dangerous: anything that failed to parse fails closed.
// IPv4-mapped IPv6 addresses are unwrapped and the embedded IPv4 classified.
func IsDangerousIP(ip net.IP) bool {
	if ip == nil {
		return true
	}

	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	for _, ipNet := range dangerousRanges {
		if ipNet.Contains(ip) {
			return true
		}
	}

	for _, meta := range metadataIPs {
		if ip.Equal(meta) {
			return true
		}
	}

	return false
}

// ClassifyIP maps a concrete IP to PrivateIP or PublicIP.
func ClassifyIP(ip net.IP) Classification {
	if IsDangerousIP(ip) {
		return ClassPrivateIP
	}
	return ClassPublicIP
}

// IsDangerousHost parses host as an IP literal and classifies it.
// Unparsable input is dangerous (fail-closed); callers that want "is this a
// literal at all" semantics should net.ParseIP first.
func IsDangerousHost(host string) bool {
	return IsDangerousIP(net.ParseIP(host))
}
