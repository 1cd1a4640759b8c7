// Package fetcher performs the guarded outbound fetch: pre-flight URL
// validation, the HTTP exchange over the rebinding-safe transport, and
// content simplification to markdown.
package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fetchguard/engine/internal/fetch/extract"
	"github.com/fetchguard/engine/internal/fetch/ssrf"
	"github.com/fetchguard/engine/pkg/types"
)

// Config assembles a Fetcher from its collaborators.
type Config struct {
	Transport        http.RoundTripper
	Validator        *ssrf.Validator
	Logger           *zap.Logger
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string
}

// Result is a completed fetch. Content is markdown for simplified HTML,
// raw text otherwise; Prefix carries the explanatory banner for raw
// content and redirect notices, and is prepended before truncation.
type Result struct {
	URL            string
	StatusCode     int
	ContentType    string
	Content        string
	Prefix         string
	Classification ssrf.Classification
	Truncated      bool
	BodyBytes      int64
}

type Fetcher struct {
	client    *http.Client
	validator *ssrf.Validator
	logger    *zap.Logger
	maxBytes  int64
	userAgent string
}

// New creates a Fetcher. Redirects are never followed automatically: each
// hop would need its own validation, so the redirect is surfaced to the
// caller instead.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultFetchTimeout
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = types.DefaultMaxResponseBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = types.DefaultUserAgentAutonomous
	}

	return &Fetcher{
		client: &http.Client{
			Transport: cfg.Transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		validator: cfg.Validator,
		logger:    logger,
		maxBytes:  maxBytes,
		userAgent: userAgent,
	}
}

// Fetch validates rawURL, performs the request and returns the simplified
// (or raw, when forceRaw is set or the content is not HTML) body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, userAgent string, forceRaw bool) (*Result, error) {
	target, err := f.validator.ValidateURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL.String(), nil)
	if err != nil {
		return nil, types.NewInvalidParameter("failed to build request for %q: %v", rawURL, err)
	}
	if userAgent == "" {
		userAgent = f.userAgent
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	f.logger.Debug("fetch completed",
		zap.String("url", rawURL),
		zap.Int("status_code", resp.StatusCode),
		zap.String("classification", string(target.Classification)),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return f.redirectResult(target, resp), nil
	}

	if resp.StatusCode >= 400 {
		return nil, types.NewFetchError(types.KindHTTPStatusFailed,
			"failed to fetch %s - status code %d", rawURL, resp.StatusCode)
	}

	body, truncated, err := f.readBody(resp.Body)
	if err != nil {
		return nil, types.WrapFetchError(types.KindConnectFailed, err, "failed to read response from %s", rawURL)
	}

	result := &Result{
		URL:            rawURL,
		StatusCode:     resp.StatusCode,
		ContentType:    resp.Header.Get("Content-Type"),
		Classification: target.Classification,
		Truncated:      truncated,
		BodyBytes:      int64(len(body)),
	}

	page := string(body)
	if extract.IsHTML(body, result.ContentType) && !forceRaw {
		markdown, err := toMarkdown(page)
		if err == nil {
			result.Content = markdown
			return result, nil
		}
		// Extraction never fails the fetch; the caller gets the raw page
		f.logger.Warn("Markdown simplification failed, returning raw content",
			zap.String("url", rawURL), zap.Error(err))
	}

	result.Content = page
	result.Prefix = fmt.Sprintf("Content type %s cannot be simplified to markdown, but here is the raw content:\n", result.ContentType)
	return result, nil
}

// toMarkdown is swappable in tests to exercise the extraction fallback.
var toMarkdown = extract.ToMarkdown

// redirectResult surfaces a 3xx without following it. The Location target
// has not been validated; the caller decides whether to fetch it.
func (f *Fetcher) redirectResult(target *ssrf.Target, resp *http.Response) *Result {
	location := resp.Header.Get("Location")
	content := fmt.Sprintf("Request to %s was redirected (status %d)", target.URL.String(), resp.StatusCode)
	if location != "" {
		content = fmt.Sprintf("%s to %s. Redirects are not followed automatically; fetch the new URL directly if it is the intended destination.", content, location)
	} else {
		content += " with no Location header."
	}
	return &Result{
		URL:            target.URL.String(),
		StatusCode:     resp.StatusCode,
		ContentType:    resp.Header.Get("Content-Type"),
		Content:        content,
		Classification: target.Classification,
	}
}

// readBody reads at most maxBytes and reports whether the body was cut off.
func (f *Fetcher) readBody(r io.Reader) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > f.maxBytes {
		return body[:f.maxBytes], true, nil
	}
	return body, false, nil
}

// classifyTransportError maps client errors to the typed taxonomy. Errors
// produced by the dial guard pass through unchanged; TLS verification
// failures get an actionable message since they are commonly a broken or
// intercepted chain rather than a fetcher bug.
func (f *Fetcher) classifyTransportError(rawURL string, err error) error {
	if fetchErr := types.AsFetchError(err); fetchErr != nil {
		return fetchErr
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) || errors.As(err, &invalidCert) {
		return types.WrapFetchError(types.KindTLSVerificationFailed, err,
			"TLS certificate verification failed for %s; if this host is trusted, set fetch.ssl_verify to false", rawURL)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapFetchError(types.KindConnectFailed, err, "request to %s timed out", rawURL)
	}

	return types.WrapFetchError(types.KindConnectFailed, err, "failed to fetch %s", rawURL)
}
