package configtest

import (
	"context"
	"net"
	"time"

	"github.com/fetchguard/engine/internal/common/configtypes"
	"github.com/fetchguard/engine/internal/fetch/ssrf"
	"github.com/fetchguard/engine/internal/fetch/urlkey"
	"github.com/fetchguard/engine/pkg/types"
)

// URLTestResult contains the policy verdict for a single test URL
type URLTestResult struct {
	URL            string
	NormalizedURL  string
	URLKey         string
	Allowed        bool
	Classification string
	ResolvedIPs    []string
	ErrorCode      string
	ErrorKind      string
	ErrorMessage   string
}

// TestURL runs the fetch policy from cfg against testURL and reports
// whether the gateway would allow it, without performing any HTTP request.
func TestURL(cfg *configtypes.GatewayConfig, testURL string) *URLTestResult {
	result := &URLTestResult{
		URL:           testURL,
		NormalizedURL: urlkey.Normalize(testURL),
		URLKey:        urlkey.Key(testURL),
	}

	policy := ssrf.NewAllowPolicy(cfg.Fetch.AllowPrivateIPs, cfg.Fetch.AllowedPrivateHosts)
	validator := ssrf.NewValidator(policy, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target, err := validator.ValidateURL(ctx, testURL)
	if err != nil {
		if fetchErr := types.AsFetchError(err); fetchErr != nil {
			result.ErrorCode = string(fetchErr.Code)
			result.ErrorKind = string(fetchErr.Kind)
			result.ErrorMessage = fetchErr.Message
		} else {
			result.ErrorMessage = err.Error()
		}
		return result
	}

	result.Allowed = true
	result.Classification = string(target.Classification)

	// Informational only; the gateway re-resolves at connect time
	if ips, lookupErr := net.DefaultResolver.LookupIP(ctx, "ip", target.Hostname); lookupErr == nil {
		for _, ip := range ips {
			result.ResolvedIPs = append(result.ResolvedIPs, ip.String())
		}
	}

	return result
}
