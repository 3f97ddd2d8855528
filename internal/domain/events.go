package domain

import "time"

// Analytics event types emitted by the onboarding step handlers.
// Emission is fire-and-forget: a failed event must never fail the
// operation that produced it.
const (
	EventStepCompleted    = "onboarding_step_completed"
	EventStepFailed       = "onboarding_step_failed"
	EventOnboardingDone   = "onboarding_completed"
	EventPaymentConfirmed = "onboarding_payment_confirmed"
	EventAccessDenied     = "washer_access_denied"
)

// AnalyticsEvent is a single tracked event, persisted best-effort to
// the analytics_events table.
type AnalyticsEvent struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Type       string            `json:"event_type"`
	Step       int               `json:"step,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// OnboardingMetrics is the JSON snapshot served by the metrics
// endpoint, assembled from the Prometheus counters.
type OnboardingMetrics struct {
	StepCompletions map[string]int64 `json:"step_completions"`
	StepFailures    map[string]int64 `json:"step_failures"`
	StripeErrors    int64            `json:"stripe_errors"`
	DatabaseErrors  int64            `json:"database_errors"`
	AlertsFired     int64            `json:"alerts_fired"`
	CacheHitRate    float64          `json:"cache_hit_rate"`
	Period          string           `json:"period"`
}
