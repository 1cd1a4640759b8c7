package ssrf

import (
	"net"
	"strconv"
	"strings"
)

// DecodeObfuscatedIPv4 attempts to interpret a hostname-shaped token as a
// non-canonically encoded IPv4 address. Recognized forms, in priority order:
//
//	2130706433   - decimal 32-bit integer
//	017700000001 - octal 32-bit integer (leading zero)
//	0x7f000001   - hex 32-bit integer
//	0177.0.0.1   - dotted quad with octal and/or hex octets
//
// A canonical hostname or an ordinary dotted quad with no leading-zero or
// hex marker returns ok=false: false positives here would misclassify normal
// hostnames, so only tokens carrying an actual obfuscation marker decode.
// Pure function, no I/O.
func DecodeObfuscatedIPv4(host string) (net.IP, bool) {
	if host == "" {
		return nil, false
	}

	// Whole-token integer forms.
	if isAllDigits(host) {
		base := 10
		if host[0] == '0' && len(host) > 1 {
			base = 8
		}
		n, err := strconv.ParseUint(trimBasePrefix(host, base), base, 64)
		if err != nil || n > 0xFFFFFFFF {
			return nil, false
		}
		return ipv4FromUint32(uint32(n)), true
	}

	if (strings.HasPrefix(host, "0x") || strings.HasPrefix(host, "0X")) && !strings.Contains(host, ".") {
		n, err := strconv.ParseUint(host[2:], 16, 64)
		if err != nil || n > 0xFFFFFFFF {
			return nil, false
		}
		return ipv4FromUint32(uint32(n)), true
	}

	// Dotted quad with at least one octal or hex octet.
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return nil, false
	}

	marker := false
	var octets [4]byte
	for i, part := range parts {
		val, obfuscated, ok := decodeOctet(part)
		if !ok || val > 255 {
			return nil, false
		}
		if obfuscated {
			marker = true
		}
		octets[i] = byte(val)
	}
	if !marker {
		// Plain dotted decimal: not obfuscated.
		return nil, false
	}
	return net.IPv4(octets[0], octets[1], octets[2], octets[3]).To4(), true
}

// decodeOctet parses one dotted-quad component in decimal, octal
// (leading-zero) or hex (0x-prefix) form. The second return reports whether
// the component carried an obfuscation marker.
func decodeOctet(s string) (val uint64, obfuscated bool, ok bool) {
	if s == "" {
		return 0, false, false
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		return n, true, err == nil
	}

	if !isAllDigits(s) {
		return 0, false, false
	}

	if s[0] == '0' && len(s) > 1 {
		n, err := strconv.ParseUint(s[1:], 8, 64)
		return n, true, err == nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	return n, false, err == nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimBasePrefix(s string, base int) string {
	if base == 8 {
		return strings.TrimPrefix(s, "0")
	}
	return s
}

func ipv4FromUint32(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}
