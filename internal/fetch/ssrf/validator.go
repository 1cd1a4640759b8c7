package ssrf

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/fetchguard/engine/pkg/types"
)

// Resolver abstracts DNS lookup so validation can be exercised without the
// network. *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Target is the outcome of successful pre-flight validation: the parsed URL
// plus why it was allowed. Produced per call, never cached -- caching a
// verdict would extend the check-to-use window and reopen DNS rebinding.
type Target struct {
	URL            *url.URL
	Hostname       string
	Classification Classification
}

// Validator is the pre-flight gate run once per fetch attempt before any
// network I/O. The check order is deliberate and must not be rearranged:
// scheme, allowlist, blocklist, obfuscated literals, plain literals, DNS.
type Validator struct {
	policy   *AllowPolicy
	resolver Resolver
}

// NewValidator creates a validator. A nil resolver uses net.DefaultResolver.
func NewValidator(policy *AllowPolicy, resolver Resolver) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Validator{policy: policy, resolver: resolver}
}

// ValidateURL decides whether rawURL may be fetched. It returns a typed
// error (never a bare one) so callers can distinguish caller mistakes from
// blocked targets and resolution failures.
func (v *Validator) ValidateURL(ctx context.Context, rawURL string) (*Target, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, types.NewInvalidParameter("invalid URL %q: %v", rawURL, err)
	}

	// Scheme gate runs first: it blocks file, javascript, data, gopher,
	// ftp, ldap and dict vectors before any hostname logic executes.
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, types.NewInvalidParameter("URL scheme %q is not allowed; only http and https are supported", parsed.Scheme)
	}

	hostname := NormalizeHostname(parsed.Hostname())
	if hostname == "" {
		return nil, types.NewInvalidParameter("URL %q has no hostname", rawURL)
	}

	// Explicit allowlist bypasses every remaining check, including the
	// static blocklist and DNS classification.
	if v.policy.IsHostAllowed(hostname) {
		return &Target{URL: parsed, Hostname: hostname, Classification: ClassWhitelisted}, nil
	}

	if IsBlockedHostname(hostname) {
		return nil, types.NewFetchError(types.KindBlocked, "hostname %q is blocked", hostname)
	}

	// Obfuscated IPv4 literals disguised as hostnames.
	if decoded, ok := DecodeObfuscatedIPv4(hostname); ok {
		if IsDangerousIP(decoded) {
			if !v.policy.AllowPrivateIPs() {
				return nil, types.NewFetchError(types.KindBlocked,
					"hostname %q is an obfuscated encoding of %s, which is a private/reserved IP (blocked)", hostname, decoded)
			}
			return &Target{URL: parsed, Hostname: hostname, Classification: ClassObfuscatedPrivate}, nil
		}
		return &Target{URL: parsed, Hostname: hostname, Classification: ClassObfuscatedPublic}, nil
	}

	// Plain IP literals (IPv4, IPv6, IPv4-mapped IPv6).
	if ip := net.ParseIP(hostname); ip != nil {
		if IsDangerousIP(ip) {
			if !v.policy.AllowPrivateIPs() {
				return nil, types.NewFetchError(types.KindBlocked,
					"IP address %s is private/reserved and not allowed", ip)
			}
			return &Target{URL: parsed, Hostname: hostname, Classification: ClassPrivateIP}, nil
		}
		return &Target{URL: parsed, Hostname: hostname, Classification: ClassPublicIP}, nil
	}

	// Hostname: resolve across all address families and classify every
	// resolved address. A resolution failure is surfaced, never treated
	// as safe.
	ips, err := v.resolver.LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil, types.WrapFetchError(types.KindResolutionFailed, err, "DNS resolution failed for %q", hostname)
	}
	if len(ips) == 0 {
		return nil, types.NewFetchError(types.KindResolutionFailed, "DNS resolution for %q returned no addresses", hostname)
	}

	class := ClassPublicIP
	for _, ip := range ips {
		if IsDangerousIP(ip) {
			if !v.policy.AllowPrivateIPs() {
				return nil, types.NewFetchError(types.KindBlocked,
					"hostname %q resolves to private/reserved IP %s", hostname, ip)
			}
			class = ClassPrivateIP
		}
	}

	return &Target{URL: parsed, Hostname: hostname, Classification: class}, nil
}
