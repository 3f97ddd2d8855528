package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sudsyapp/washer-onboarding-go/internal/config"
	"github.com/sudsyapp/washer-onboarding-go/internal/handler"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/cache"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/observability"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/resilience"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/stripe"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/supabase"
	"github.com/sudsyapp/washer-onboarding-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("role_cache_ttl", cfg.RoleCacheTTL),
		zap.Int64("onboarding_fee_cents", cfg.OnboardingFeeCents),
		zap.Int("alert_threshold", cfg.AlertThreshold),
		zap.Duration("alert_window", cfg.AlertWindow),
	)

	if cfg.SupabaseURL == "" || cfg.StripeSecretKey == "" {
		logger.Fatal("SUPABASE_URL and STRIPE_SECRET_KEY must be set")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "washer-onboarding")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	roleCache := cache.New[string](cfg.RoleCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	stripeCB := resilience.NewCircuitBreaker("stripe")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	stripeClient := stripe.NewClient(
		httpClient,
		cfg.StripeAPIURL,
		cfg.StripeSecretKey,
		stripeCB,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	analytics := service.NewAnalytics(supabaseClient, metrics, cfg.AlertThreshold, cfg.AlertWindow, logger)

	onboardingSvc := service.NewOnboardingService(
		supabaseClient,
		supabaseClient,
		supabaseClient,
		stripeClient,
		analytics,
		roleCache,
		metrics,
		logger,
		service.FeeConfig{
			AmountCents: cfg.OnboardingFeeCents,
			Currency:    cfg.FeeCurrency,
			ReturnURL:   cfg.OnboardingBaseURL + "/bank-connected",
			RefreshURL:  cfg.OnboardingBaseURL + "/bank-link",
		},
	)

	// --- Router ---
	router := handler.NewRouter(onboardingSvc, handler.Config{
		JWTSecret:           cfg.SupabaseJWTSecret,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
	}, metrics, supabaseClient, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
