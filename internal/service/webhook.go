package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// HandleAccountUpdated refreshes the cached account status for the
// profile owning the connected account. Driven by the processor's
// account.updated webhook, so polling is not the only thing keeping
// the cached mirror fresh.
func (s *OnboardingService) HandleAccountUpdated(ctx context.Context, details *domain.AccountDetails) error {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.HandleAccountUpdated")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", details.ID))

	profile, err := s.profiles.FindProfileByAccountID(ctx, details.ID)
	if err != nil {
		s.countExternalError(err)
		return err
	}

	accountStatus := domain.DeriveAccountStatus(details)
	if profile.StripeAccountStatus == accountStatus {
		return nil
	}

	if err := s.profiles.UpdateProfile(ctx, profile.ID, map[string]any{
		"stripe_account_status": accountStatus,
	}); err != nil {
		s.countExternalError(err)
		return err
	}

	s.logger.Info("cached account status updated from webhook",
		zap.String("user_id", profile.ID),
		zap.String("account_id", details.ID),
		zap.String("status", accountStatus),
	)
	return nil
}
