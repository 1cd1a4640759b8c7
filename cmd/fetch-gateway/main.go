package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fetchguard/engine/internal/common/config"
	"github.com/fetchguard/engine/internal/common/logger"
	"github.com/fetchguard/engine/internal/common/metricsserver"
	"github.com/fetchguard/engine/internal/fetch/fetcher"
	"github.com/fetchguard/engine/internal/fetch/ssrf"
	"github.com/fetchguard/engine/internal/fetch/transport"
	"github.com/fetchguard/engine/internal/gateway/audit"
	"github.com/fetchguard/engine/internal/gateway/configtest"
	"github.com/fetchguard/engine/internal/gateway/metrics"
	"github.com/fetchguard/engine/internal/gateway/server"
	gatewaytls "github.com/fetchguard/engine/internal/gateway/tls"
)

func main() {
	configPath := flag.String("c", "configs/fetch-gateway.yaml", "path to configuration file")
	testMode := flag.Bool("t", false, "test configuration and exit")
	flag.Parse()

	if *testMode {
		var testURL string
		if flag.NArg() > 0 {
			testURL = flag.Arg(0)
		}
		os.Exit(runConfigTest(*configPath, testURL))
	}

	// Initial logger for startup, replaced once the config is loaded
	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	initialLogger.Info("Starting Fetch Gateway", zap.String("config_path", *configPath))

	cfg, err := config.Load(*configPath)
	if err != nil {
		initialLogger.Fatal("Failed to load config", zap.Error(err))
	}

	dynamicLogger, err := logger.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("Failed to create configured logger", zap.Error(err))
	}
	defer dynamicLogger.Sync()

	gwLogger := dynamicLogger.Logger
	if cfg.InstanceID != "" {
		gwLogger = gwLogger.With(zap.String("instance", cfg.InstanceID))
	}

	// Target policy is built once and stays immutable for the process
	policy := ssrf.NewAllowPolicy(cfg.Fetch.AllowPrivateIPs, cfg.Fetch.AllowedPrivateHosts)
	if cfg.Fetch.AllowPrivateIPs {
		gwLogger.Warn("Private IP fetching is ENABLED; SSRF protection is reduced")
	}
	if !cfg.Fetch.SSLVerifyEnabled() {
		gwLogger.Warn("TLS certificate verification is DISABLED")
	}

	validator := ssrf.NewValidator(policy, nil)
	roundTripper := transport.New(transport.Options{
		Policy:             policy,
		InsecureSkipVerify: !cfg.Fetch.SSLVerifyEnabled(),
		ProxyURL:           config.ProxyURL(cfg),
		Logger:             gwLogger,
	})

	urlFetcher := fetcher.New(fetcher.Config{
		Transport:        roundTripper,
		Validator:        validator,
		Logger:           gwLogger,
		Timeout:          time.Duration(cfg.Fetch.Timeout),
		MaxResponseBytes: cfg.Fetch.MaxResponseBytes,
		UserAgent:        cfg.Fetch.UserAgentAutonomous,
	})

	metricsCollector := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, gwLogger)

	metricsServer, err := metricsserver.StartMetricsServer(
		cfg.Metrics.Enabled,
		cfg.Metrics.Listen,
		cfg.Metrics.Path,
		metricsCollector,
		gwLogger,
	)
	if err != nil {
		gwLogger.Fatal("Failed to start metrics server", zap.Error(err))
	}

	var auditEmitter audit.Emitter
	if cfg.Audit != nil && cfg.Audit.File.Enabled {
		fileEmitter, err := audit.NewFileEmitter(cfg.Audit.File, gwLogger)
		if err != nil {
			gwLogger.Fatal("Failed to create audit emitter", zap.Error(err))
		}
		auditEmitter = audit.NewMultiEmitter(fileEmitter)
		gwLogger.Info("Audit logging initialized", zap.String("path", cfg.Audit.File.Path))
	}

	srv := server.NewServer(cfg, urlFetcher, metricsCollector, auditEmitter, gwLogger)

	// Create the TLS listener before starting public servers to fail fast
	var tlsListener net.Listener
	if cfg.Server.TLS.Enabled {
		configDir := filepath.Dir(*configPath)
		certPath := cfg.Server.TLS.CertFile
		keyPath := cfg.Server.TLS.KeyFile
		if !filepath.IsAbs(certPath) {
			certPath = filepath.Join(configDir, certPath)
		}
		if !filepath.IsAbs(keyPath) {
			keyPath = filepath.Join(configDir, keyPath)
		}

		tlsListener, err = gatewaytls.NewListener(cfg.Server.TLS.Listen, certPath, keyPath)
		if err != nil {
			gwLogger.Fatal("Failed to create TLS listener", zap.Error(err))
		}
	}

	serverErrors := make(chan error, 2)

	httpLifecycle := &serverLifecycle{
		server:  newFastHTTPServer(srv.HandleRequest, time.Duration(cfg.Server.Timeout)),
		name:    "HTTP",
		address: cfg.Server.Listen,
		logger:  gwLogger,
	}
	httpLifecycle.StartWithErrorChan(serverErrors)

	var httpsLifecycle *serverLifecycle
	if cfg.Server.TLS.Enabled {
		httpsLifecycle = &serverLifecycle{
			server:   newFastHTTPServer(srv.HandleRequest, time.Duration(cfg.Server.Timeout)),
			listener: tlsListener,
			name:     "HTTPS",
			address:  cfg.Server.TLS.Listen,
			logger:   gwLogger,
		}
		httpsLifecycle.StartWithErrorChan(serverErrors)
	}

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-serverErrors:
		gwLogger.Fatal("Server failed to start", zap.Error(err))
	default:
	}

	gwLogger.Info("Fetch Gateway started",
		zap.String("http_addr", cfg.Server.Listen),
		zap.Bool("allow_private_ips", cfg.Fetch.AllowPrivateIPs),
		zap.Bool("ssl_verify", cfg.Fetch.SSLVerifyEnabled()))

	dynamicLogger.SwitchToConfiguredLevel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		dynamicLogger.EnsureInfoLevelForShutdown()
		gwLogger.Info("Shutting down Fetch Gateway...")
	case err := <-serverErrors:
		dynamicLogger.EnsureInfoLevelForShutdown()
		gwLogger.Error("Server startup failed, initiating shutdown", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		gwLogger.Info("Shutting down metrics server")
		if err := metricsServer.ShutdownWithContext(shutdownCtx); err != nil {
			gwLogger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	if httpsLifecycle != nil {
		wg.Add(1)
	}
	go func() {
		defer wg.Done()
		httpLifecycle.Shutdown(shutdownCtx)
	}()
	if httpsLifecycle != nil {
		go func() {
			defer wg.Done()
			httpsLifecycle.Shutdown(shutdownCtx)
		}()
	}
	wg.Wait()
	gwLogger.Info("Public servers shutdown complete")

	if err := srv.Shutdown(); err != nil {
		gwLogger.Error("Server resource shutdown error", zap.Error(err))
	}

	gwLogger.Info("Fetch Gateway stopped")
}

const serverName = "FetchGateway/1.0"

func newFastHTTPServer(handler fasthttp.RequestHandler, timeout time.Duration) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      handler,
		Name:                         serverName,
		ReadTimeout:                  timeout,
		WriteTimeout:                 timeout,
		IdleTimeout:                  timeout,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultDate:                true,
	}
}

type serverLifecycle struct {
	server   *fasthttp.Server
	listener net.Listener // nil for HTTP (uses ListenAndServe), set for HTTPS
	name     string
	address  string
	logger   *zap.Logger
}

func (s *serverLifecycle) StartWithErrorChan(errChan chan<- error) {
	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe(s.address)
		}
		if err != nil {
			s.logger.Error("Server error", zap.String("name", s.name), zap.Error(err))
			if errChan != nil {
				errChan <- fmt.Errorf("%s server failed: %w", s.name, err)
			}
		}
	}()
	s.logger.Info("Server started", zap.String("name", s.name), zap.String("address", s.address))
}

func (s *serverLifecycle) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server", zap.String("name", s.name))
	err := s.server.ShutdownWithContext(ctx)
	if err != nil {
		s.logger.Error("Server shutdown error", zap.String("name", s.name), zap.Error(err))
	}
	return err
}

// runConfigTest validates the configuration file and optionally reports
// the policy verdict for a test URL.
func runConfigTest(configPath string, testURL string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration file %s test FAILED: %v\n", configPath, err)
		return 1
	}
	fmt.Printf("configuration file %s syntax is ok\n", configPath)
	fmt.Println("configuration test is successful")

	if testURL != "" {
		configtest.PrintURLTestResult(configtest.TestURL(cfg, testURL))
	}
	return 0
}
