package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Default fetch parameters shared between the gateway and the fetcher.
const (
	// DefaultMaxLength is the default content window returned per request.
	DefaultMaxLength = 5000
	// MaxLengthLimit is the exclusive upper bound for max_length.
	MaxLengthLimit = 1_000_000
	// DefaultFetchTimeout bounds a single fetch attempt wall-clock.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes = 10 * 1024 * 1024
)

// Default User-Agent strings. Autonomous is used for agent-initiated fetches,
// Manual for user-initiated ones.
const (
	DefaultUserAgentAutonomous = "FetchGuard/1.0 (Autonomous; +https://github.com/fetchguard/engine)"
	DefaultUserAgentManual     = "FetchGuard/1.0 (User-Specified; +https://github.com/fetchguard/engine)"
)

// Duration wraps time.Duration with YAML/JSON string parsing ("30s", "5m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
// Accepts both numbers (nanoseconds) and strings ("15s", "24h").
func (d *Duration) UnmarshalJSON(data []byte) error {
	var ns int64
	if err := json.Unmarshal(data, &ns); err == nil {
		*d = Duration(ns)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or number, got %s", string(data))
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ToDuration converts types.Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer
func (d Duration) String() string {
	return time.Duration(d).String()
}
