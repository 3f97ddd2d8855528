package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/infra/observability"
	"github.com/sudsyapp/washer-onboarding-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Pinger checks connectivity to the data backend, used by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the handler-level secrets and collaborators that are
// not services.
type Config struct {
	JWTSecret           string
	StripeWebhookSecret string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.OnboardingService, cfg Config, metrics *observability.Metrics, pinger Pinger, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(pinger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Webhooks authenticate by signature, not by bearer token.
		r.Post("/webhooks/stripe", stripeWebhookHandler(svc, cfg.StripeWebhookSecret, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(cfg.JWTSecret, logger))

			r.Route("/onboarding", func(r chi.Router) {
				r.Get("/status", getStatusHandler(svc, logger))
				r.Get("/access", accessHandler(svc, logger))

				r.Post("/profile", saveProfileHandler(svc, logger))
				r.Post("/verification", submitVerificationHandler(svc, logger))
				r.Post("/bank-link", bankLinkHandler(svc, logger))
				r.Post("/bank-confirm", bankConfirmHandler(svc, logger))
				r.Post("/payment", createPaymentHandler(svc, logger))
				r.Post("/payment/confirm", confirmPaymentHandler(svc, logger))
				r.Post("/complete", completeOnboardingHandler(svc, logger))
			})

			r.Get("/metrics/onboarding", onboardingMetricsHandler(metrics, logger))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports ready only when the data backend answers.
func readyzHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"reason": "data backend unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// onboardingMetricsHandler serves the JSON analytics snapshot.
func onboardingMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/onboarding")
		defer span.End()

		writeSuccess(w, metrics.GetOnboardingSnapshot(), "")
	}
}
