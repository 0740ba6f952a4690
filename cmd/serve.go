package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/korima-app/korima/internal/briefing"
	"github.com/korima-app/korima/internal/calendar"
	"github.com/korima-app/korima/internal/config"
	"github.com/korima-app/korima/internal/credential"
	"github.com/korima-app/korima/internal/google"
	"github.com/korima-app/korima/internal/instrumentation"
	"github.com/korima-app/korima/internal/logging"
	"github.com/korima-app/korima/internal/server"
	"github.com/korima-app/korima/internal/tools/briefing_tools"
)

// metricsStartupGrace is how long serve waits for the metrics server to fail
// fast (for example on a busy port) before carrying on.
const metricsStartupGrace = 200 * time.Millisecond

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the korima HTTP API",
		Long: `Start the korima HTTP API.

Endpoints:
  GET /                           readiness message
  GET /api/auth/google            Google authorization URL
  GET /api/auth/google/callback   OAuth callback, redirects to the frontend
  GET /api/daily-briefing         next upcoming calendar events
  /mcp                            MCP streamable HTTP (unless --mcp-enabled=false)
  /healthz, /readyz, /healthz/detailed

Every flag can also be set through a KORIMA_ environment variable, e.g.
--frontend-url as KORIMA_FRONTEND_URL, or in the YAML file given with --config.
GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are honored as well.

Telemetry flags also honor INSTRUMENTATION_ENABLED, METRICS_EXPORTER,
TRACING_EXPORTER, METRICS_DETAILED_LABELS and the standard OTEL_* variables
(OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE,
OTEL_TRACES_SAMPLER_ARG, OTEL_RESOURCE_ATTRIBUTES).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to a YAML config file")
	f.String(config.KeyHTTPAddr, ":8080", "Address the HTTP API listens on")
	f.String(config.KeyBaseURL, "", "Public base URL of this server (default: derived from --http-addr)")
	f.String(config.KeyFrontendURL, "", "Frontend URL; receives the browser after login and is the only CORS origin (required)")
	f.String(config.KeyOAuthRedirectURL, "", "OAuth redirect URL registered with Google (default: <base-url>"+config.CallbackPath+")")
	f.String(config.KeyGoogleClientID, "", "Google OAuth client ID (or GOOGLE_CLIENT_ID)")
	f.String(config.KeyGoogleClientSecret, "", "Google OAuth client secret (or GOOGLE_CLIENT_SECRET)")
	f.String(config.KeyCalendarID, calendar.DefaultCalendarID, "Calendar to read events from")
	f.Int64(config.KeyMaxEvents, briefing.DefaultMaxEvents, fmt.Sprintf("Number of upcoming events in a briefing (1-%d)", briefing.MaxEventsLimit))
	f.String(config.KeyCalendarEndpoint, "", "Override the Calendar API base URL")
	f.Duration(config.KeyStateTTL, google.DefaultStateTTL, "How long a login may take between consent URL and callback")
	f.Bool(config.KeyMetricsEnabled, true, "Serve Prometheus metrics on a dedicated port")
	f.String(config.KeyMetricsAddr, server.DefaultMetricsAddr, "Address the metrics server listens on")
	f.Bool(config.KeyMCPEnabled, true, "Expose the briefing as an MCP tool at "+server.MCPEndpointPath)
	f.String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	f.String(config.KeyLogFormat, logging.FormatText, "Log format (text or json)")
	f.Bool(config.KeyDebug, false, "Enable debug logging")

	telemetry := instrumentation.DefaultConfig()
	f.Bool(config.KeyTelemetryEnabled, telemetry.Enabled, "Enable metrics and tracing")
	f.String(config.KeyServiceName, telemetry.ServiceName, "Service name reported to telemetry backends")
	f.String(config.KeyMetricsExporter, telemetry.MetricsExporter, "Metrics exporter (prometheus, otlp, stdout)")
	f.String(config.KeyTracingExporter, telemetry.TracingExporter, "Trace exporter (otlp, stdout, none)")
	f.String(config.KeyOTLPEndpoint, "", "OTLP collector host:port")
	f.Bool(config.KeyOTLPInsecure, false, "Send OTLP data without TLS")
	f.Float64(config.KeyTraceSampleRate, telemetry.TraceSamplingRate, "Ratio of traces sampled (0.0-1.0)")
	f.Bool(config.KeyMetricsDetailedLabels, false, "Add the credential account to briefing metrics")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := instrumentation.NewProvider(shutdownCtx, cfg.Instrumentation(version))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(cfg.MetricsAddr, provider, logger)
		if err != nil {
			return err
		}
	}
	if metricsServer != nil {
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Warn("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	srv, err := buildServer(cfg, provider.Metrics(), logger)
	if err != nil {
		return err
	}

	logger.Info("Starting korima",
		"version", version,
		"addr", cfg.HTTPAddr,
		"base_url", cfg.BaseURL,
		"frontend_url", cfg.FrontendURL,
		"redirect_url", cfg.OAuthRedirectURL,
		"calendar_id", cfg.CalendarID,
		"max_events", cfg.MaxEvents,
		"mcp_enabled", cfg.MCPEnabled,
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		stopCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err, ok := <-serverDone:
		if ok && err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// buildServer wires the credential store, the OAuth client, the briefing
// service and the optional MCP endpoint into the HTTP server.
func buildServer(cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*server.Server, error) {
	store := credential.NewMemoryStore(logger)

	oauthClient, err := google.NewOAuthClient(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		States:       google.NewStateStore(cfg.StateTTL),
		Metrics:      metrics,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth client: %w", err)
	}

	briefings, err := briefing.NewService(briefing.Config{
		Store:            store,
		Tokens:           oauthClient,
		CalendarID:       cfg.CalendarID,
		MaxEvents:        cfg.MaxEvents,
		CalendarEndpoint: cfg.CalendarEndpoint,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create briefing service: %w", err)
	}

	var mcpHandler http.Handler
	if cfg.MCPEnabled {
		mcpSrv := mcpserver.NewMCPServer("korima", version,
			mcpserver.WithToolCapabilities(true),
		)
		if err := briefing_tools.RegisterBriefingTools(mcpSrv, briefings, metrics); err != nil {
			return nil, fmt.Errorf("failed to register briefing tools: %w", err)
		}
		mcpHandler = mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath(server.MCPEndpointPath),
		)
	}

	srv, err := server.New(server.Config{
		FrontendURL: cfg.FrontendURL,
		Auth:        oauthClient,
		Briefings:   briefings,
		Store:       store,
		MCPHandler:  mcpHandler,
		Metrics:     metrics,
		Logger:      logger,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}
	return srv, nil
}

// startMetricsServer starts the metrics server in the background. Startup
// errors that happen within metricsStartupGrace are returned; a provider that
// does not export Prometheus metrics only disables the endpoint.
func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		logger.Warn("Metrics endpoint disabled", logging.Err(err))
		return nil, nil
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
	}()

	select {
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupGrace):
		return metricsServer, nil
	}
}
