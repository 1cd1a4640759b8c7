package ssrf

// AllowPolicy controls which otherwise-dangerous targets are permitted.
// It is built once at process start and never mutated afterwards, so it is
// safe to share across concurrent fetches without locking.
type AllowPolicy struct {
	allowPrivateIPs bool
	allowedHosts    map[string]struct{}
}

// NewAllowPolicy builds a policy from configuration. Hostnames are
// normalized (lowercased, trailing dot stripped) so the allowlist matches
// however the caller spells the host.
func NewAllowPolicy(allowPrivateIPs bool, allowedPrivateHosts []string) *AllowPolicy {
	policy := &AllowPolicy{
		allowPrivateIPs: allowPrivateIPs,
		allowedHosts:    make(map[string]struct{}, len(allowedPrivateHosts)),
	}
	for _, host := range allowedPrivateHosts {
		if normalized := NormalizeHostname(host); normalized != "" {
			policy.allowedHosts[normalized] = struct{}{}
		}
	}
	return policy
}

// AllowPrivateIPs reports whether dangerous-classified IPs are permitted.
func (p *AllowPolicy) AllowPrivateIPs() bool {
	return p != nil && p.allowPrivateIPs
}

// IsHostAllowed reports whether the hostname is on the explicit allowlist
// that bypasses all IP and DNS checks.
func (p *AllowPolicy) IsHostAllowed(host string) bool {
	if p == nil {
		return false
	}
	_, found := p.allowedHosts[NormalizeHostname(host)]
	return found
}
