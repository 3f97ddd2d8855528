package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// CanAccessWasherFeatures decides whether a user may use washer-only
// features. Non-washers always pass. Washers pass once onboarding is
// fully complete. If the full status computation fails, the decision
// degrades to the coarse cached account status so an outage at the
// processor does not lock every verified washer out.
func (s *OnboardingService) CanAccessWasherFeatures(ctx context.Context, userID string) (*domain.AccessDecision, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.CanAccessWasherFeatures")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("access_check", time.Since(start)) }()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}

	// Roles change rarely; the cache spares a profile read on the hot
	// path for non-washers.
	if role, ok := s.roleCache.Get("role:" + userID); ok {
		s.metrics.IncrCacheHit("role")
		if role != domain.RoleWasher {
			return &domain.AccessDecision{CanAccess: true, Status: domain.AccountStatusComplete}, nil
		}
	} else {
		s.metrics.IncrCacheMiss("role")
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.countExternalError(err)
		return nil, err
	}
	s.roleCache.Set("role:"+userID, profile.Role)

	if profile.Role != domain.RoleWasher {
		return &domain.AccessDecision{CanAccess: true, Status: domain.AccountStatusComplete}, nil
	}

	decision := &domain.AccessDecision{
		Status:    profile.StripeAccountStatus,
		AccountID: profile.StripeAccountID,
	}

	status, err := s.GetOnboardingStatus(ctx, userID)
	if err != nil {
		// Degraded path: precision traded for availability.
		s.logger.Warn("access gate falling back to cached account status",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		decision.CanAccess = profile.StripeAccountStatus == domain.AccountStatusComplete
	} else {
		decision.OnboardingStatus = status
		decision.CanAccess = status.IsComplete && len(status.CompletedSteps) == domain.TotalSteps
	}

	if !decision.CanAccess {
		s.track(ctx, userID, domain.EventAccessDenied, 0, nil)
	}

	return decision, nil
}
