// Package transport builds the outbound HTTP transport with connect-time
// SSRF enforcement. Pre-flight validation alone is not enough: between the
// validator's DNS lookup and the actual connect, an attacker-controlled
// zone can swap its answer to a private address (DNS rebinding). The Guard
// re-resolves inside DialContext and refuses to connect to anything the
// policy forbids, while the request's Host header and TLS SNI keep the
// original hostname.
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/fetchguard/engine/internal/fetch/ssrf"
	"github.com/fetchguard/engine/pkg/types"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultIdleTimeout = 90 * time.Second
)

// Options configures the guarded transport.
type Options struct {
	Policy             *ssrf.AllowPolicy
	Resolver           ssrf.Resolver
	InsecureSkipVerify bool
	ProxyURL           *url.URL
	DialTimeout        time.Duration
	Logger             *zap.Logger
}

// Guard performs the second, connect-time resolution and classification.
// Verdicts are never cached: every dial re-resolves so a changed DNS answer
// is caught on the very next connection.
type Guard struct {
	policy   *ssrf.AllowPolicy
	resolver ssrf.Resolver
	dialer   *net.Dialer
	logger   *zap.Logger
}

// NewGuard creates a connect-time guard. A nil resolver uses
// net.DefaultResolver; a nil logger logs nothing.
func NewGuard(opts Options) *Guard {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &Guard{
		policy:   opts.Policy,
		resolver: resolver,
		dialer:   &net.Dialer{Timeout: timeout},
		logger:   logger,
	}
}

// DialContext resolves addr's host, classifies every answer and connects to
// the first address only if the whole answer set is permitted. Hostnames
// that resolve to a forbidden address here passed pre-flight moments ago,
// so the failure is reported as rebinding rather than a plain block.
func (g *Guard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, types.NewInvalidParameter("invalid dial address %q: %v", addr, err)
	}

	hostname := ssrf.NormalizeHostname(host)

	if g.policy.IsHostAllowed(hostname) {
		return g.dialer.DialContext(ctx, network, addr)
	}

	// Literal IPs were classified during pre-flight; there is no second
	// DNS answer to diverge, so connect directly.
	if ip := net.ParseIP(hostname); ip != nil {
		if ssrf.IsDangerousIP(ip) && !g.policy.AllowPrivateIPs() {
			return nil, types.NewFetchError(types.KindBlocked,
				"IP address %s is private/reserved and not allowed", ip)
		}
		return g.dialer.DialContext(ctx, network, addr)
	}

	ips, err := g.resolver.LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil, types.WrapFetchError(types.KindResolutionFailed, err, "DNS resolution failed for %q", hostname)
	}
	if len(ips) == 0 {
		return nil, types.NewFetchError(types.KindResolutionFailed, "DNS resolution for %q returned no addresses", hostname)
	}

	if !g.policy.AllowPrivateIPs() {
		for _, ip := range ips {
			if ssrf.IsDangerousIP(ip) {
				g.logger.Warn("DNS rebinding detected at connect time",
					zap.String("hostname", hostname),
					zap.String("resolved_ip", ip.String()))
				return nil, types.NewFetchError(types.KindRebindingDetected,
					"hostname %q resolved to private/reserved IP %s at connect time (possible DNS rebinding)", hostname, ip)
			}
		}
	}

	// Connect to the validated address, not the hostname, so the answer
	// checked above is the one actually used.
	return g.dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

// New builds the outbound round tripper: a pooled *http.Transport dialing
// through the Guard, wrapped for transparent gzip. When a proxy is set the
// Guard validates the proxy address and target enforcement is delegated to
// the proxy operator.
func New(opts Options) http.RoundTripper {
	guard := NewGuard(opts)

	inner := &http.Transport{
		DialContext:           guard.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
	}
	if opts.ProxyURL != nil {
		inner.Proxy = http.ProxyURL(opts.ProxyURL)
	}

	return gzhttp.Transport(inner)
}
