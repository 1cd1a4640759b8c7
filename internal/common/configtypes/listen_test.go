package configtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListenAddress(t *testing.T) {
	tests := []struct {
		name     string
		listen   string
		wantHost string
		wantPort int
		wantErr  string
	}{
		{"port only with colon", ":8080", "", 8080, ""},
		{"port only without colon", "8080", "", 8080, ""},
		{"hostname with port", "localhost:9090", "localhost", 9090, ""},
		{"IPv4 with port", "0.0.0.0:10070", "0.0.0.0", 10070, ""},
		{"IPv6 with port", "[::1]:8080", "::1", 8080, ""},
		{"empty", "", "", 0, "listen address is empty"},
		{"non-numeric port", "localhost:http", "", 0, "invalid port"},
		{"bare hostname", "localhost", "", 0, "invalid listen address format"},
		{"too many colons", "1:2:3", "", 0, "invalid listen address format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := ParseListenAddress(tt.listen)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestValidateListenAddress(t *testing.T) {
	tests := []struct {
		name    string
		listen  string
		wantErr string
	}{
		{"valid port only", ":10070", ""},
		{"valid host and port", "127.0.0.1:9091", ""},
		{"port at upper bound", ":65535", ""},
		{"port zero", ":0", "port must be between 1 and 65535"},
		{"port too large", ":65536", "port must be between 1 and 65535"},
		{"empty", "", "listen address is empty"},
		{"malformed", "not-an-address", "invalid listen address format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateListenAddress(tt.listen)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
