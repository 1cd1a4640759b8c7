package configtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fetchguard/engine/internal/common/configtypes"
)

func TestTestURL(t *testing.T) {
	cfg := &configtypes.GatewayConfig{
		Fetch: configtypes.FetchConfig{
			AllowedPrivateHosts: []string{"127.0.0.1"},
		},
	}

	t.Run("blocked private literal", func(t *testing.T) {
		result := TestURL(cfg, "http://10.0.0.1/admin")

		assert.False(t, result.Allowed)
		assert.Equal(t, "internal-error", result.ErrorCode)
		assert.Equal(t, "blocked", result.ErrorKind)
		assert.Contains(t, result.ErrorMessage, "private")
	})

	t.Run("rejected scheme", func(t *testing.T) {
		result := TestURL(cfg, "file:///etc/passwd")

		assert.False(t, result.Allowed)
		assert.Equal(t, "invalid-parameter", result.ErrorCode)
	})

	t.Run("allowlisted host", func(t *testing.T) {
		result := TestURL(cfg, "http://127.0.0.1:8081/status")

		require.True(t, result.Allowed)
		assert.NotEmpty(t, result.Classification)
		assert.NotEmpty(t, result.URLKey)
	})

	t.Run("normalization is reported", func(t *testing.T) {
		result := TestURL(cfg, "HTTP://127.0.0.1/b?z=1&a=2")

		assert.Contains(t, result.NormalizedURL, "http://127.0.0.1/b?a=2&z=1")
	})
}
