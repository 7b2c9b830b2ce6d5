package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/gulfcoast/internal"
	"github.com/DukeRupert/gulfcoast/internal/assets"
	"github.com/DukeRupert/gulfcoast/internal/content"
	"github.com/DukeRupert/gulfcoast/internal/email"
	"github.com/DukeRupert/gulfcoast/internal/handler"
	"github.com/DukeRupert/gulfcoast/internal/listing"
	"github.com/DukeRupert/gulfcoast/internal/metrics"
	"github.com/DukeRupert/gulfcoast/internal/middleware"
	"github.com/DukeRupert/gulfcoast/internal/sink"
	"github.com/DukeRupert/gulfcoast/internal/storage"
	"github.com/DukeRupert/gulfcoast/web"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize storage
	store, err := storage.New(cfg.StorageProvider,
		storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Load site content and resolve image references
	site, err := content.Load(cfg.ContentFile)
	if err != nil {
		return fmt.Errorf("content load failed: %w", err)
	}
	if err := site.Resolve(ctx, assets.NewProvider(store)); err != nil {
		return fmt.Errorf("content image resolution failed: %w", err)
	}

	listings, err := listing.New(cfg.ListingSource, site.SearchLinks, listing.FeedConfig{
		URL:      cfg.ListingFeedURL,
		Timeout:  cfg.ListingFeedTimeout,
		CacheTTL: 5 * time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("listing source initialization failed: %w", err)
	}

	// Lead delivery
	leadSink, closeSink, err := newLeadSink(ctx, cfg, site, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		FS:     web.Templates(),
		Dir:    cfg.TemplatesDir,
		IsDev:  cfg.IsDev(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	limiter := middleware.NewRateLimiter(cfg.LeadRateLimit, cfg.LeadRateWindow, logger)
	defer limiter.Stop()

	isSecure := !cfg.IsDev()
	siteHandler := handler.NewSiteHandler(handler.SiteHandlerConfig{
		Site:     site,
		Listings: listings,
		Sink:     leadSink,
		Limiter:  limiter,
		Renderer: renderer,
		Logger:   logger,
		IsSecure: isSecure,
	})

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Uploaded photos, served directly only in local development storage
	if local, ok := store.(*storage.LocalStorage); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServerFS(local.FS())))
	}

	// Metrics
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if !metricsAuth.Enabled() {
		logger.Warn("METRICS_USERNAME/METRICS_PASSWORD not set, /metrics is unprotected")
	}
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	siteHandler.RegisterRoutes(mux)

	var extraImgSrc []string
	if cfg.StorageProvider == storage.ProviderLocal {
		extraImgSrc = append(extraImgSrc, cfg.LocalStorageURL)
	}
	requestLogger := middleware.NewRequestLoggingMiddleware(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure, extraImgSrc...)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.Stack(mux, requestLogger.Handler, securityHeaders.Handler, metrics.Middleware),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newLeadSink builds the configured sinks behind the idempotency guard. The
// returned func releases the idempotency store.
func newLeadSink(ctx context.Context, cfg *internal.Config, site *content.Site, logger *slog.Logger) (sink.Sink, func(), error) {
	var sinks []sink.Sink

	if cfg.HasSink(internal.SinkLog) {
		sinks = append(sinks, sink.Instrument(sink.NewLogSink(logger), cfg.LeadSinkTimeout))
	}

	if cfg.HasSink(internal.SinkEmail) {
		composer, err := email.NewComposer(web.Templates(), "email", cfg.BaseURL, site.Agent.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("email templates failed: %w", err)
		}
		svc, err := email.New(cfg.EmailProvider, email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, composer, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("email service initialization failed: %w", err)
		}

		to := cfg.LeadNotifyEmail
		if to == "" {
			to = site.Agent.Email
		}
		sinks = append(sinks, sink.Instrument(sink.NewEmailSink(svc, to), cfg.LeadSinkTimeout))
	}

	if cfg.HasSink(internal.SinkWebhook) {
		webhook := sink.NewWebhookSink(sink.WebhookConfig{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
		}, logger)
		sinks = append(sinks, sink.Instrument(webhook, cfg.LeadSinkTimeout))
	}

	var (
		store   sink.Store
		closeFn = func() {}
	)
	switch cfg.IdempotencyStore {
	case "redis":
		client, err := sink.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		store = sink.NewRedisStore(client, cfg.IdempotencyTTL)
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close failed", "error", err)
			}
		}
	default:
		store = sink.NewMemoryStore(cfg.IdempotencyTTL)
	}

	logger.Info("Lead sinks ready", "sinks", cfg.LeadSinks, "idempotency", cfg.IdempotencyStore)
	return sink.NewIdempotent(sink.NewMulti(logger, sinks...), store, logger), closeFn, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
