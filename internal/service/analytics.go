package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/cache"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/observability"
	"github.com/sudsyapp/washer-onboarding-go/internal/port"
)

// Analytics tracks onboarding events: Prometheus counters, best-effort
// persistence to the analytics_events table, and threshold alerting on
// step failures. Track never fails or blocks its caller; downstream
// failures are logged and swallowed.
type Analytics struct {
	events    port.EventStore
	metrics   *observability.Metrics
	failures  *cache.WindowCounter
	threshold int
	logger    *zap.Logger
}

// NewAnalytics creates the analytics sink. An alert fires when a step
// accumulates threshold failures within the window.
func NewAnalytics(events port.EventStore, metrics *observability.Metrics, threshold int, window time.Duration, logger *zap.Logger) *Analytics {
	return &Analytics{
		events:    events,
		metrics:   metrics,
		failures:  cache.NewWindowCounter(window),
		threshold: threshold,
		logger:    logger,
	}
}

// Track records an event. Implements port.EventSink.
func (a *Analytics) Track(ctx context.Context, ev *domain.AnalyticsEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	a.metrics.IncrEventTracked(ev.Type)

	switch ev.Type {
	case domain.EventStepCompleted:
		a.metrics.IncrStepCompletion(ev.Step)
	case domain.EventStepFailed:
		a.metrics.IncrStepFailure(ev.Step)
		a.checkThreshold(ev)
	}

	// Persist off the request path. The detached context keeps the
	// write alive after the originating request completes.
	go a.persist(context.WithoutCancel(ctx), ev)
}

func (a *Analytics) checkThreshold(ev *domain.AnalyticsEvent) {
	count := a.failures.Incr(strconv.Itoa(ev.Step))
	if count >= a.threshold {
		a.metrics.IncrAlertFired(ev.Step)
		a.logger.Error("onboarding step failure threshold exceeded",
			zap.Int("step", ev.Step),
			zap.Int("failures_in_window", count),
			zap.Int("threshold", a.threshold),
		)
	}
}

func (a *Analytics) persist(ctx context.Context, ev *domain.AnalyticsEvent) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analytics: panic while persisting event", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.events.InsertEvent(ctx, ev); err != nil {
		a.logger.Warn("analytics: failed to persist event",
			zap.String("event_type", ev.Type),
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
	}
}
