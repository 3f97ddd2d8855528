package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the onboarding service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	stepCompletions *prometheus.CounterVec
	stepFailures    *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	alertsFired     *prometheus.CounterVec
	eventsTracked   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onboarding_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		stepCompletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_step_completions_total",
				Help: "Completed onboarding steps.",
			},
			[]string{"step"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_step_failures_total",
				Help: "Failed onboarding step attempts.",
			},
			[]string{"step"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		alertsFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_alerts_fired_total",
				Help: "Threshold alerts fired by the analytics monitor.",
			},
			[]string{"step"},
		),
		eventsTracked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_events_tracked_total",
				Help: "Analytics events tracked, by type.",
			},
			[]string{"type"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStepCompletion increments the completion counter for a step.
func (m *Metrics) IncrStepCompletion(step int) {
	m.stepCompletions.WithLabelValues(strconv.Itoa(step)).Inc()
}

// IncrStepFailure increments the failure counter for a step.
func (m *Metrics) IncrStepFailure(step int) {
	m.stepFailures.WithLabelValues(strconv.Itoa(step)).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrAlertFired increments the alert counter for a step.
func (m *Metrics) IncrAlertFired(step int) {
	m.alertsFired.WithLabelValues(strconv.Itoa(step)).Inc()
}

// IncrEventTracked increments the tracked-event counter for a type.
func (m *Metrics) IncrEventTracked(eventType string) {
	m.eventsTracked.WithLabelValues(eventType).Inc()
}

// GetOnboardingSnapshot returns a snapshot of onboarding metrics
// suitable for the GET /v1/metrics/onboarding endpoint.
func (m *Metrics) GetOnboardingSnapshot() *domain.OnboardingMetrics {
	completions := make(map[string]int64, domain.TotalSteps)
	failures := make(map[string]int64, domain.TotalSteps)
	var alerts float64
	for step := domain.StepProfileSetup; step <= domain.TotalSteps; step++ {
		label := strconv.Itoa(step)
		completions[label] = int64(getCounterValue(m.stepCompletions, label))
		failures[label] = int64(getCounterValue(m.stepFailures, label))
		alerts += getCounterValue(m.alertsFired, label)
	}

	cacheHits := getCounterValue(m.cacheHits, "role")
	cacheMisses := getCounterValue(m.cacheMisses, "role")
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.OnboardingMetrics{
		StepCompletions: completions,
		StepFailures:    failures,
		StripeErrors:    int64(getCounterValue(m.externalErrors, "stripe")),
		DatabaseErrors:  int64(getCounterValue(m.externalErrors, "supabase")),
		AlertsFired:     int64(alerts),
		CacheHitRate:    cacheHitRate,
		Period:          "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
