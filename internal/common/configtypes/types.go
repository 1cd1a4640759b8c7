package configtypes

import (
	"github.com/fetchguard/engine/pkg/types"
)

// Log level constants
const (
	LogLevelDebug  = "debug"
	LogLevelInfo   = "info"
	LogLevelWarn   = "warn"
	LogLevelError  = "error"
	LogLevelDPanic = "dpanic"
	LogLevelPanic  = "panic"
	LogLevelFatal  = "fatal"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// GatewayConfig represents the fetch gateway main application configuration
type GatewayConfig struct {
	Server     ServerConfig  `yaml:"server"`
	Fetch      FetchConfig   `yaml:"fetch"`
	Log        LogConfig     `yaml:"log"`
	Metrics    MetricsConfig `yaml:"metrics"`
	Audit      *AuditConfig  `yaml:"audit,omitempty"`
	InstanceID string        `yaml:"instance_id,omitempty"`
}

// TLSConfig holds TLS/HTTPS configuration for the external server
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Listen   string `yaml:"listen"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type ServerConfig struct {
	Listen  string         `yaml:"listen"`
	Timeout types.Duration `yaml:"timeout"`
	TLS     TLSConfig      `yaml:"tls"`
	// ClientIPHeaders lists trusted proxy headers checked in order for the
	// client address. Empty means the connection's remote address is used.
	ClientIPHeaders []string `yaml:"client_ip_headers,omitempty"`
}

// FetchConfig controls outbound fetch behavior and the SSRF policy.
// SSLVerify is a *bool so an absent key defaults to verification enabled.
type FetchConfig struct {
	SSLVerify           *bool          `yaml:"ssl_verify,omitempty"`
	AllowPrivateIPs     bool           `yaml:"allow_private_ips"`
	AllowedPrivateHosts []string       `yaml:"allowed_private_hosts,omitempty"`
	ProxyURL            string         `yaml:"proxy_url,omitempty"`
	Timeout             types.Duration `yaml:"timeout,omitempty"`
	MaxResponseBytes    int64          `yaml:"max_response_bytes,omitempty"`
	UserAgentAutonomous string         `yaml:"user_agent_autonomous,omitempty"`
	UserAgentManual     string         `yaml:"user_agent_manual,omitempty"`
}

// SSLVerifyEnabled reports whether TLS verification is on. Absent means on.
func (f FetchConfig) SSLVerifyEnabled() bool {
	return f.SSLVerify == nil || *f.SSLVerify
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// AuditConfig configures fetch audit event logging
type AuditConfig struct {
	File AuditFileConfig `yaml:"file"`
}

// AuditFileConfig configures file-based audit logging
type AuditFileConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Rotation RotationConfig `yaml:"rotation"`
}
