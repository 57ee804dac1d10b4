package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-booking-assistant/internal/api/router"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/webchat"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic booking assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	info, err := clinic.LoadInfoOrDefault(cfg.ClinicDataPath)
	if err != nil {
		logger.Error("failed to load clinic info", "error", err, "path", cfg.ClinicDataPath)
		os.Exit(1)
	}

	storage, err := bootstrap.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure llm", "error", err)
		os.Exit(1)
	}

	metricsHandler, convMetrics, msgMetrics := setupMetrics()

	twilio := bootstrap.BuildTwilioSender(cfg, logger)
	var sms notify.SMSSender
	if twilio != nil {
		sms = notify.NewSimpleSMSSender(twilio.SendSMS, logger)
	}
	deps := bootstrap.AssistantDeps{
		Storage: storage,
		LLM:     llm,
		Clinic:  info,
		Metrics: convMetrics,
	}
	if notifier := bootstrap.BuildNotifier(ctx, cfg, info, sms, logger); notifier != nil {
		deps.Notifier = notifier
	}

	assistant, err := bootstrap.BuildAssistant(ctx, cfg, deps, logger)
	if err != nil {
		logger.Error("failed to build assistant", "error", err)
		os.Exit(1)
	}

	limiter := setupRateLimiter(cfg)
	if limiter != nil {
		defer limiter.Stop()
	}

	r := buildRouter(cfg, assistant, storage, twilio, metricsHandler, msgMetrics, limiter, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.ConversationMetrics, *metrics.MessagingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewConversationMetrics(reg), metrics.NewMessagingMetrics(reg)
}

func setupRateLimiter(cfg *appconfig.Config) *httpmiddleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

func buildRouter(
	cfg *appconfig.Config,
	assistant *bootstrap.Assistant,
	storage *bootstrap.Storage,
	twilio *messaging.TwilioSender,
	metricsHandler http.Handler,
	msgMetrics *metrics.MessagingMetrics,
	limiter *httpmiddleware.RateLimiter,
	logger *logging.Logger,
) http.Handler {
	var messenger messaging.ReplyMessenger
	if twilio != nil {
		messenger = twilio
	} else {
		logger.Warn("twilio credentials missing; replying inline with TwiML")
	}

	routerCfg := &router.Config{
		Logger: logger,
		MessagingHandler: messaging.NewHandler(cfg.TwilioWebhookSecret, assistant.Orchestrator, messenger, logger,
			messaging.WithPublicBaseURL(cfg.PublicBaseURL),
			messaging.WithMessagingMetrics(msgMetrics),
		),
		WebChat:            webchat.NewHandler(assistant.Orchestrator, storage.Store, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	}
	if cfg.AdminJWTSecret != "" {
		routerCfg.Admin = handlers.NewAdminHandler(storage.Store, storage.Store, assistant.Sessions, logger)
		routerCfg.AdminAuthSecret = cfg.AdminJWTSecret
	} else {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes disabled")
	}
	return router.New(routerCfg)
}
