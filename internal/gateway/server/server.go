// Package server implements the inbound fetch gateway API.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fetchguard/engine/internal/common/configtypes"
	"github.com/fetchguard/engine/internal/common/httputil"
	"github.com/fetchguard/engine/internal/common/requestid"
	"github.com/fetchguard/engine/internal/fetch/fetcher"
	"github.com/fetchguard/engine/internal/gateway/audit"
	"github.com/fetchguard/engine/internal/gateway/clientip"
	"github.com/fetchguard/engine/internal/gateway/metrics"
	"github.com/fetchguard/engine/pkg/types"
)

type Server struct {
	cfg     *configtypes.GatewayConfig
	fetcher *fetcher.Fetcher
	logger  *zap.Logger

	metricsCollector *metrics.PrometheusMetrics

	// Audit logging (nil if disabled)
	auditEmitter audit.Emitter
	instanceID   string
	startTime    time.Time
}

func NewServer(
	cfg *configtypes.GatewayConfig,
	f *fetcher.Fetcher,
	metricsCollector *metrics.PrometheusMetrics,
	auditEmitter audit.Emitter,
	logger *zap.Logger,
) *Server {
	return &Server{
		cfg:              cfg,
		fetcher:          f,
		metricsCollector: metricsCollector,
		auditEmitter:     auditEmitter,
		logger:           logger,
		instanceID:       cfg.InstanceID,
		startTime:        time.Now(),
	}
}

func (s *Server) HandleRequest(ctx *fasthttp.RequestCtx) {
	customRequestID := string(ctx.Request.Header.Peek("X-Request-ID"))
	requestID := requestid.GenerateRequestID(customRequestID)
	ctx.Response.Header.Set("X-Request-ID", requestID)

	logger := s.logger.With(zap.String("request_id", requestID))

	switch string(ctx.Path()) {
	case "/health":
		s.handleHealth(ctx)
	case "/status":
		s.handleStatus(ctx)
	case "/fetch":
		if !ctx.IsGet() && !ctx.IsPost() {
			logger.Warn("Method not allowed", zap.String("method", string(ctx.Method())))
			httputil.JSONErrorCode(ctx, string(types.CodeInvalidParameter),
				"method not allowed; use GET or POST", fasthttp.StatusMethodNotAllowed)
			return
		}
		s.processFetchRequest(ctx, requestID, logger)
	default:
		logger.Warn("Not found", zap.String("path", string(ctx.Path())))
		httputil.JSONErrorCode(ctx, string(types.CodeInvalidParameter),
			"endpoint not found", fasthttp.StatusNotFound)
	}
}

// processFetchRequest handles the main fetch workflow: parse and bound the
// parameters, run the guarded fetch, window the content and respond.
func (s *Server) processFetchRequest(ctx *fasthttp.RequestCtx, requestID string, logger *zap.Logger) {
	start := time.Now()

	if s.metricsCollector != nil {
		s.metricsCollector.IncActiveRequests()
		defer s.metricsCollector.DecActiveRequests()
	}

	params, err := parseFetchParams(ctx)
	if err != nil {
		s.finishWithError(ctx, requestID, "", params, err, time.Since(start), logger)
		return
	}

	logger.Info("BEGIN fetch request",
		zap.String("url", params.URL),
		zap.Int("max_length", params.MaxLength),
		zap.Int("start_index", params.StartIndex),
		zap.Bool("raw", params.Raw))

	userAgent := s.cfg.Fetch.UserAgentAutonomous
	if params.Manual {
		userAgent = s.cfg.Fetch.UserAgentManual
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Fetch.Timeout))
	defer cancel()

	result, err := s.fetcher.Fetch(reqCtx, params.URL, userAgent, params.Raw)
	duration := time.Since(start)
	if err != nil {
		s.finishWithError(ctx, requestID, params.URL, params, err, duration, logger)
		return
	}

	body := params.Window(result.Prefix, result.Content)

	ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString(body)

	if s.metricsCollector != nil {
		s.metricsCollector.RecordRequest(audit.OutcomeSuccess, duration)
		s.metricsCollector.RecordUpstreamResponse(result.StatusCode, result.BodyBytes)
	}

	if s.auditEmitter != nil {
		event := audit.NewEvent(requestID, params.URL)
		event.Outcome = audit.OutcomeSuccess
		event.Classification = string(result.Classification)
		event.StatusCode = result.StatusCode
		event.BodyBytes = result.BodyBytes
		event.Duration = duration.Seconds()
		event.ClientIP = clientip.Extract(ctx, s.cfg.Server.ClientIPHeaders)
		event.UserAgent = userAgent
		event.Raw = params.Raw
		event.InstanceID = s.instanceID
		s.auditEmitter.Emit(event)
	}

	logger.Info("END fetch request completed",
		zap.Int("status_code", result.StatusCode),
		zap.Int64("body_bytes", result.BodyBytes),
		zap.Duration("duration", duration))
}

// finishWithError writes the typed error response, records metrics and emits
// the audit event.
func (s *Server) finishWithError(ctx *fasthttp.RequestCtx, requestID, rawURL string, params *fetchParams, err error, duration time.Duration, logger *zap.Logger) {
	outcome := audit.OutcomeForError(err)
	logger.Warn("Fetch request failed",
		zap.String("url", rawURL),
		zap.String("outcome", outcome),
		zap.Error(err))

	code := types.CodeInternalError
	status := fasthttp.StatusBadGateway
	message := err.Error()
	if fetchErr := types.AsFetchError(err); fetchErr != nil {
		code = fetchErr.Code
	}
	if code == types.CodeInvalidParameter {
		status = fasthttp.StatusBadRequest
	}
	httputil.JSONErrorCode(ctx, string(code), message, status)

	if s.metricsCollector != nil {
		s.metricsCollector.RecordRequest(outcome, duration)
		switch outcome {
		case audit.OutcomeBlocked:
			s.metricsCollector.RecordBlocked(blockedReason(message))
		case audit.OutcomeRebindingDetected:
			s.metricsCollector.RecordRebindingDetected()
		}
	}

	if s.auditEmitter != nil {
		event := audit.NewEvent(requestID, rawURL)
		event.Outcome = outcome
		event.ErrorMessage = message
		event.Duration = duration.Seconds()
		event.ClientIP = clientip.Extract(ctx, s.cfg.Server.ClientIPHeaders)
		if params != nil {
			event.Raw = params.Raw
		}
		event.InstanceID = s.instanceID
		s.auditEmitter.Emit(event)
	}
}

// blockedReason buckets a refusal message for the blocked_total metric.
func blockedReason(message string) string {
	switch {
	case strings.Contains(message, "obfuscated"):
		return "obfuscated"
	case strings.Contains(message, "resolves to"):
		return "dns"
	case strings.Contains(message, "hostname"):
		return "hostname"
	default:
		return "private_ip"
	}
}

// handleStatus reports instance identity and coarse counters as JSON.
func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	data := map[string]interface{}{
		"instance_id":    s.instanceID,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	}
	if s.metricsCollector != nil {
		data["requests_success"] = s.metricsCollector.RequestsTotal(audit.OutcomeSuccess)
		data["requests_blocked"] = s.metricsCollector.RequestsTotal(audit.OutcomeBlocked)
	}
	httputil.JSONData(ctx, data, fasthttp.StatusOK)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Type", "text/plain")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)
	ctx.Response.SetBodyString("OK")
}

// Shutdown gracefully closes server resources.
func (s *Server) Shutdown() error {
	if s.auditEmitter != nil {
		if err := s.auditEmitter.Close(); err != nil {
			s.logger.Warn("Failed to close audit emitter", zap.Error(err))
			return err
		}
	}
	return nil
}
