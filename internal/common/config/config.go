// Package config loads and validates the gateway configuration file.
// Parsing is strict: unknown YAML keys fail the load instead of being
// silently dropped. A handful of environment variables override the file
// for deployment-time tuning; security-sensitive overrides parse
// fail-secure (anything that is not an exact match keeps the safe value).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/fetchguard/engine/internal/common/configtypes"
	"github.com/fetchguard/engine/internal/common/yamlutil"
	"github.com/fetchguard/engine/pkg/types"
)

// Type aliases so callers only import this package
type (
	GatewayConfig = configtypes.GatewayConfig
	ServerConfig  = configtypes.ServerConfig
	FetchConfig   = configtypes.FetchConfig
	LogConfig     = configtypes.LogConfig
	MetricsConfig = configtypes.MetricsConfig
	AuditConfig   = configtypes.AuditConfig
)

// Environment overrides
const (
	EnvSSLVerify           = "FETCH_SSL_VERIFY"
	EnvAllowPrivateIPs     = "FETCH_ALLOW_PRIVATE_IPS"
	EnvAllowedPrivateHosts = "FETCH_ALLOWED_PRIVATE_HOSTS"
)

// Load reads, parses, applies environment overrides to and validates the
// configuration at path.
func Load(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg GatewayConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides merges environment variables into the loaded config.
// FETCH_SSL_VERIFY disables verification only on the literal string
// "false" (case-insensitive); any other value, including typos, keeps
// verification enabled. FETCH_ALLOW_PRIVATE_IPS is the mirror image:
// only the literal "true" enables it.
func applyEnvOverrides(cfg *GatewayConfig) {
	if v, ok := os.LookupEnv(EnvSSLVerify); ok {
		verify := !strings.EqualFold(strings.TrimSpace(v), "false")
		cfg.Fetch.SSLVerify = &verify
	}

	if v, ok := os.LookupEnv(EnvAllowPrivateIPs); ok {
		cfg.Fetch.AllowPrivateIPs = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	if v, ok := os.LookupEnv(EnvAllowedPrivateHosts); ok {
		var hosts []string
		for _, host := range strings.Split(v, ",") {
			if host = strings.TrimSpace(host); host != "" {
				hosts = append(hosts, host)
			}
		}
		cfg.Fetch.AllowedPrivateHosts = hosts
	}
}

func applyDefaults(cfg *GatewayConfig) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = types.Duration(types.DefaultFetchTimeout)
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = types.Duration(types.DefaultFetchTimeout)
	}
	if cfg.Fetch.MaxResponseBytes == 0 {
		cfg.Fetch.MaxResponseBytes = types.DefaultMaxResponseBytes
	}
	if cfg.Fetch.UserAgentAutonomous == "" {
		cfg.Fetch.UserAgentAutonomous = types.DefaultUserAgentAutonomous
	}
	if cfg.Fetch.UserAgentManual == "" {
		cfg.Fetch.UserAgentManual = types.DefaultUserAgentManual
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "fetchguard"
	}
}

// Validate checks cross-field constraints that strict parsing cannot.
func Validate(cfg *GatewayConfig) error {
	if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}

	if cfg.Server.TLS.Enabled {
		if err := configtypes.ValidateListenAddress(cfg.Server.TLS.Listen); err != nil {
			return fmt.Errorf("server.tls.listen: %w", err)
		}
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls: cert_file and key_file are required when TLS is enabled")
		}
	}

	if cfg.Metrics.Enabled {
		if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics.listen: %w", err)
		}
	}

	if cfg.Fetch.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.Fetch.ProxyURL)
		if err != nil {
			return fmt.Errorf("fetch.proxy_url: invalid URL: %w", err)
		}
		if proxyURL.Scheme != "http" && proxyURL.Scheme != "https" && proxyURL.Scheme != "socks5" {
			return fmt.Errorf("fetch.proxy_url: unsupported scheme %q", proxyURL.Scheme)
		}
	}

	if cfg.Fetch.MaxResponseBytes < 0 {
		return fmt.Errorf("fetch.max_response_bytes must not be negative")
	}

	if cfg.Audit != nil && cfg.Audit.File.Enabled && cfg.Audit.File.Path == "" {
		return fmt.Errorf("audit.file.path is required when audit file logging is enabled")
	}

	return nil
}

// ProxyURL returns the parsed proxy URL or nil when none is configured.
// Validate has already vetted the string, so a parse failure here means
// the config was mutated after load and is treated as no proxy.
func ProxyURL(cfg *GatewayConfig) *url.URL {
	if cfg.Fetch.ProxyURL == "" {
		return nil
	}
	proxyURL, err := url.Parse(cfg.Fetch.ProxyURL)
	if err != nil {
		return nil
	}
	return proxyURL
}
