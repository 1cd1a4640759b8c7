package urlkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase scheme and host", "HTTP://EXAMPLE.COM/Page", "http://example.com/Page"},
		{"strip default http port", "http://example.com:80/page", "http://example.com/page"},
		{"strip default https port", "https://example.com:443/page", "https://example.com/page"},
		{"keep custom port", "http://example.com:8080/page", "http://example.com:8080/page"},
		{"empty path gets slash", "https://example.com", "https://example.com/"},
		{"drop fragment", "https://example.com/page#section", "https://example.com/page"},
		{"sort query", "https://example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
		{"unparsable returned as-is", "://bad", "://bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestKey(t *testing.T) {
	// Spelling variants of the same resource share a key.
	assert.Equal(t, Key("https://example.com/page?b=2&a=1"), Key("HTTPS://EXAMPLE.COM:443/page?a=1&b=2"))
	assert.NotEqual(t, Key("https://example.com/page"), Key("https://example.com/other"))
	assert.Len(t, Key("https://example.com/"), 16)
}
