package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func TestPrometheusMetrics_Recording(t *testing.T) {
	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWithRegistry("fetchguard", registry, logger)

	pm.RecordRequest("success", time.Millisecond*150)
	pm.RecordRequest("success", time.Millisecond*50)
	pm.RecordRequest("blocked", time.Millisecond*2)

	pm.RecordBlocked("hostname")
	pm.RecordBlocked("private_ip")
	pm.RecordBlocked("private_ip")
	pm.RecordRebindingDetected()

	pm.RecordUpstreamResponse(200, 4096)
	pm.RecordUpstreamResponse(404, 128)

	pm.IncActiveRequests()
	pm.IncActiveRequests()
	pm.DecActiveRequests()

	assert.Equal(t, float64(2), pm.RequestsTotal("success"))
	assert.Equal(t, float64(1), pm.RequestsTotal("blocked"))
	assert.Equal(t, float64(2), pm.BlockedTotal("private_ip"))
	assert.Equal(t, float64(1), pm.BlockedTotal("hostname"))
}

func TestPrometheusMetrics_HTTPEndpoint(t *testing.T) {
	logger := zap.NewNop()
	registry := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWithRegistry("fetchguard", registry, logger)

	pm.RecordRequest("success", time.Millisecond*100)
	pm.RecordBlocked("hostname")
	pm.RecordUpstreamResponse(200, 1024)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/metrics")
	ctx.Request.Header.SetMethod("GET")

	pm.ServeHTTP(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Header.Peek("Content-Type")), "text/plain")

	body := string(ctx.Response.Body())
	assert.Contains(t, body, "fetchguard_gateway_requests_total")
	assert.Contains(t, body, "fetchguard_gateway_blocked_total")
	assert.Contains(t, body, "fetchguard_upstream_status_code_responses_total")
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
}
