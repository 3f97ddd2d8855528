// Package service provides the business logic of the washer onboarding
// wizard: the status derivation engine, the per-step action handlers,
// the access gate, and the analytics sink.
package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/observability"
	"github.com/sudsyapp/washer-onboarding-go/internal/port"
)

var onboardingTracer = otel.Tracer("service/onboarding")

// FeeConfig describes the one-time onboarding fee and where hosted
// account links send the washer back to.
type FeeConfig struct {
	AmountCents int64
	Currency    string
	ReturnURL   string
	RefreshURL  string
}

// OnboardingService orchestrates the four-step washer onboarding flow.
type OnboardingService struct {
	profiles  port.ProfileStore
	apps      port.ApplicationStore
	progress  port.ProgressStore
	payments  port.PaymentAccounts
	analytics port.EventSink
	roleCache port.Cache[string]
	metrics   *observability.Metrics
	logger    *zap.Logger
	fee       FeeConfig
}

// NewOnboardingService creates the onboarding service.
func NewOnboardingService(
	profiles port.ProfileStore,
	apps port.ApplicationStore,
	progress port.ProgressStore,
	payments port.PaymentAccounts,
	analytics port.EventSink,
	roleCache port.Cache[string],
	metrics *observability.Metrics,
	logger *zap.Logger,
	fee FeeConfig,
) *OnboardingService {
	return &OnboardingService{
		profiles:  profiles,
		apps:      apps,
		progress:  progress,
		payments:  payments,
		analytics: analytics,
		roleCache: roleCache,
		metrics:   metrics,
		logger:    logger,
		fee:       fee,
	}
}

// GetOnboardingStatus derives the unified onboarding status for a user.
//
// The progress record is the preferred source: when present it maps
// directly onto the result. When it is missing or unreadable the
// status is recomputed from the profile, the washer application, and
// the processor's live account state, and the progress record is
// seeded with the result for future calls.
func (s *OnboardingService) GetOnboardingStatus(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.GetOnboardingStatus")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("onboarding_status", time.Since(start)) }()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.countExternalError(err)
		return nil, err
	}

	// Non-washers have nothing to onboard.
	if profile.Role != domain.RoleWasher {
		return domain.CompletedStatus(), nil
	}

	// Preferred path: the precomputed progress record.
	rec, err := s.progress.GetProgress(ctx, userID)
	if err == nil && rec != nil {
		status := domain.StatusFromProgress(rec)
		status.StripeAccountID = profile.StripeAccountID
		return status, nil
	}

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		s.countExternalError(err)
		s.logger.Warn("progress record unavailable, falling back to recompute",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return s.recomputeStatus(ctx, profile)
}

// recomputeStatus is the fallback path: it evaluates the four steps in
// order against the underlying stores and the live processor state.
// Evaluation short-circuits at the first incomplete step, so a later
// step can never be marked complete ahead of an earlier one.
func (s *OnboardingService) recomputeStatus(ctx context.Context, profile *domain.Profile) (*domain.OnboardingStatus, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.recomputeStatus")
	defer span.End()

	status := &domain.OnboardingStatus{
		CurrentStep:     domain.StepProfileSetup,
		CompletedSteps:  []int{},
		StripeAccountID: profile.StripeAccountID,
	}

	// Step 1: profile setup.
	app, err := s.apps.GetApplication(ctx, profile.ID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			s.countExternalError(err)
			return nil, err
		}
		app = nil
	}
	if !app.IsFilledOut() {
		s.seedProgress(ctx, profile.ID, status, app)
		return status, nil
	}
	status.CompletedSteps = append(status.CompletedSteps, domain.StepProfileSetup)
	status.ProfileData = app
	status.CurrentStep = domain.StepVerification

	// Step 2: identity verification with the payment processor.
	if profile.StripeAccountID == "" {
		s.seedProgress(ctx, profile.ID, status, app)
		return status, nil
	}
	details, err := s.payments.GetAccount(ctx, profile.StripeAccountID)
	if err != nil {
		s.countExternalError(err)
		return nil, err
	}
	accountStatus := domain.DeriveAccountStatus(details)
	s.refreshCachedStatus(ctx, profile, accountStatus)
	if accountStatus != domain.AccountStatusComplete {
		s.seedProgress(ctx, profile.ID, status, app)
		return status, nil
	}
	status.CompletedSteps = append(status.CompletedSteps, domain.StepVerification)
	status.CurrentStep = domain.StepBankAccount

	// Step 3: a bank account attached to the connected account.
	external, err := s.payments.ListExternalAccounts(ctx, profile.StripeAccountID)
	if err != nil {
		s.countExternalError(err)
		return nil, err
	}
	if len(external) == 0 {
		s.seedProgress(ctx, profile.ID, status, app)
		return status, nil
	}
	status.CompletedSteps = append(status.CompletedSteps, domain.StepBankAccount)
	status.BankConnected = true
	status.CurrentStep = domain.StepPayment

	// Step 4: the onboarding fee.
	if profile.OnboardingFeePaid {
		status.CompletedSteps = append(status.CompletedSteps, domain.StepPayment)
		status.PaymentCompleted = true
		status.IsComplete = true
	}

	s.seedProgress(ctx, profile.ID, status, app)
	return status, nil
}

// refreshCachedStatus opportunistically writes back the freshly
// derived account status when the cached value has drifted.
// Best-effort: failure is logged, never surfaced.
func (s *OnboardingService) refreshCachedStatus(ctx context.Context, profile *domain.Profile, accountStatus string) {
	if profile.StripeAccountStatus == accountStatus {
		return
	}
	err := s.profiles.UpdateProfile(ctx, profile.ID, map[string]any{
		"stripe_account_status": accountStatus,
	})
	if err != nil {
		s.countExternalError(err)
		s.logger.Warn("failed to refresh cached account status",
			zap.String("user_id", profile.ID),
			zap.String("status", accountStatus),
			zap.Error(err),
		)
		return
	}
	profile.StripeAccountStatus = accountStatus
}

// seedProgress persists the recomputed state so future status checks
// take the preferred path. Best-effort: failure is logged, never
// surfaced.
func (s *OnboardingService) seedProgress(ctx context.Context, userID string, status *domain.OnboardingStatus, app *domain.WasherApplication) {
	steps := make([]int, len(status.CompletedSteps))
	copy(steps, status.CompletedSteps)

	rec := &domain.ProgressRecord{
		UserID:         userID,
		CurrentStep:    status.CurrentStep,
		CompletedSteps: steps,
		IsComplete:     status.IsComplete,
	}
	if app != nil && app.IsFilledOut() {
		rec.StepData.ProfileSetup = app
	}

	if err := s.progress.UpsertProgress(ctx, rec); err != nil {
		s.countExternalError(err)
		s.logger.Warn("failed to seed progress record",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// markStepComplete loads (or starts) the user's progress record, marks
// the step, and writes it back. Idempotent: re-marking a completed
// step leaves membership unchanged. Failures are logged and swallowed;
// the recompute path heals a missed write on the next status check.
func (s *OnboardingService) markStepComplete(ctx context.Context, userID string, step int, mutate func(*domain.ProgressRecord)) {
	rec, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			s.countExternalError(err)
			s.logger.Warn("failed to load progress record for step update",
				zap.String("user_id", userID),
				zap.Int("step", step),
				zap.Error(err),
			)
			return
		}
		rec = &domain.ProgressRecord{UserID: userID, CurrentStep: domain.StepProfileSetup}
	}

	rec.MarkStep(step)
	if mutate != nil {
		mutate(rec)
	}

	if err := s.progress.UpsertProgress(ctx, rec); err != nil {
		s.countExternalError(err)
		s.logger.Warn("failed to update progress record",
			zap.String("user_id", userID),
			zap.Int("step", step),
			zap.Error(err),
		)
	}
}

// countExternalError feeds the per-backend error counters. Not-found
// is a domain answer, not a backend failure, and stays uncounted.
func (s *OnboardingService) countExternalError(err error) {
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return
	}

	var stripeErr *domain.ErrStripe
	var network *domain.ErrNetwork
	var circuitOpen *domain.ErrCircuitOpen
	var unauthorized *domain.ErrUnauthorized
	var external *domain.ErrExternalService
	switch {
	case errors.As(err, &stripeErr), errors.As(err, &network),
		errors.As(err, &circuitOpen), errors.As(err, &unauthorized):
		s.metrics.IncrExternalError("stripe")
	case errors.As(err, &external):
		s.metrics.IncrExternalError("supabase")
	}
}

// track emits an analytics event, fire-and-forget.
func (s *OnboardingService) track(ctx context.Context, userID, eventType string, step int, props map[string]string) {
	s.analytics.Track(ctx, &domain.AnalyticsEvent{
		UserID:     userID,
		Type:       eventType,
		Step:       step,
		Properties: props,
	})
}
