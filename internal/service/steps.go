package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// SaveProfileSetup completes step 1: persists the washer application
// and records progress.
func (s *OnboardingService) SaveProfileSetup(ctx context.Context, userID string, input *domain.WasherApplication) (*domain.WasherApplication, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.SaveProfileSetup")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("profile_setup", time.Since(start)) }()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}
	if input == nil || strings.TrimSpace(input.ServiceAddress) == "" {
		return nil, &domain.ErrValidation{Field: "service_address", Message: "Service area is required"}
	}
	if strings.TrimSpace(input.PhoneNumber) == "" {
		return nil, &domain.ErrValidation{Field: "phone_number", Message: "Phone number is required"}
	}
	if len(input.ServiceOfferings) == 0 {
		return nil, &domain.ErrValidation{Field: "service_offerings", Message: "At least one service offering is required"}
	}
	if strings.TrimSpace(input.WasherBio) == "" {
		return nil, &domain.ErrValidation{Field: "washer_bio", Message: "Washer bio is required"}
	}

	app := &domain.WasherApplication{
		UserID:           userID,
		ServiceAddress:   strings.TrimSpace(input.ServiceAddress),
		ServiceOfferings: input.ServiceOfferings,
		WasherBio:        strings.TrimSpace(input.WasherBio),
		EquipmentDetails: strings.TrimSpace(input.EquipmentDetails),
		PhoneNumber:      strings.TrimSpace(input.PhoneNumber),
	}

	if err := s.apps.UpsertApplication(ctx, app); err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepProfileSetup, nil)
		return nil, err
	}

	// Mirror the phone number onto the profile. Best-effort; the
	// application row is the source of truth for step 1.
	if err := s.profiles.UpdateProfile(ctx, userID, map[string]any{"phone_number": app.PhoneNumber}); err != nil {
		s.countExternalError(err)
		s.logger.Warn("failed to mirror phone number onto profile",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	s.markStepComplete(ctx, userID, domain.StepProfileSetup, func(rec *domain.ProgressRecord) {
		rec.StepData.ProfileSetup = app
	})
	s.track(ctx, userID, domain.EventStepCompleted, domain.StepProfileSetup, nil)

	return app, nil
}

// SubmitVerification completes step 2: creates the connected account
// if the washer has none, forwards the KYC fields to the processor,
// and caches the derived account status. The step is only recorded as
// complete once the processor reports the account fully verified.
func (s *OnboardingService) SubmitVerification(ctx context.Context, userID string, sub *domain.KYCSubmission) (*domain.AccountDetails, string, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.SubmitVerification")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("verification", time.Since(start)) }()

	if userID == "" {
		return nil, "", &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}
	if sub == nil || strings.TrimSpace(sub.FirstName) == "" {
		return nil, "", &domain.ErrValidation{Field: "first_name", Message: "First name is required"}
	}
	if strings.TrimSpace(sub.LastName) == "" {
		return nil, "", &domain.ErrValidation{Field: "last_name", Message: "Last name is required"}
	}
	if strings.TrimSpace(sub.DateOfBirth) == "" {
		return nil, "", &domain.ErrValidation{Field: "date_of_birth", Message: "Date of birth is required"}
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.countExternalError(err)
		return nil, "", err
	}

	accountID := profile.StripeAccountID
	if accountID == "" {
		created, err := s.payments.CreateAccount(ctx, userID, sub.Email)
		if err != nil {
			s.countExternalError(err)
			s.track(ctx, userID, domain.EventStepFailed, domain.StepVerification, nil)
			return nil, "", err
		}
		accountID = created.ID

		// The account id is the critical write: without it the
		// washer would create a second account on retry.
		if err := s.profiles.UpdateProfile(ctx, userID, map[string]any{
			"stripe_account_id":     accountID,
			"stripe_account_status": domain.AccountStatusIncomplete,
		}); err != nil {
			s.countExternalError(err)
			return nil, "", err
		}
		profile.StripeAccountID = accountID
	}

	details, err := s.payments.UpdateAccount(ctx, accountID, kycFormFields(sub))
	if err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepVerification, nil)
		return nil, "", err
	}

	accountStatus := domain.DeriveAccountStatus(details)
	s.refreshCachedStatus(ctx, profile, accountStatus)

	if accountStatus == domain.AccountStatusComplete {
		s.markStepComplete(ctx, userID, domain.StepVerification, nil)
		s.track(ctx, userID, domain.EventStepCompleted, domain.StepVerification, nil)
	}

	return details, accountStatus, nil
}

// kycFormFields maps a submission onto the processor's account-update
// form paths.
func kycFormFields(sub *domain.KYCSubmission) map[string]string {
	fields := map[string]string{
		"individual[first_name]":           strings.TrimSpace(sub.FirstName),
		"individual[last_name]":            strings.TrimSpace(sub.LastName),
		"individual[address][line1]":       strings.TrimSpace(sub.AddressLine1),
		"individual[address][city]":        strings.TrimSpace(sub.City),
		"individual[address][state]":       strings.TrimSpace(sub.State),
		"individual[address][postal_code]": strings.TrimSpace(sub.PostalCode),
		"business_type":                    "individual",
	}
	if sub.Email != "" {
		fields["individual[email]"] = strings.TrimSpace(sub.Email)
	}
	if sub.IDNumber != "" {
		fields["individual[id_number]"] = strings.TrimSpace(sub.IDNumber)
	}
	if dob := strings.SplitN(strings.TrimSpace(sub.DateOfBirth), "-", 3); len(dob) == 3 {
		fields["individual[dob][year]"] = dob[0]
		fields["individual[dob][month]"] = dob[1]
		fields["individual[dob][day]"] = dob[2]
	}
	return fields
}

// CreateBankConnectionLink starts step 3: returns a one-time hosted
// URL where the washer attaches a bank account. The step itself is
// recorded by ConfirmBankConnection once an external account exists.
func (s *OnboardingService) CreateBankConnectionLink(ctx context.Context, userID string) (*domain.AccountLink, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.CreateBankConnectionLink")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("bank_link", time.Since(start)) }()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.countExternalError(err)
		return nil, err
	}
	if profile.StripeAccountID == "" {
		return nil, &domain.ErrValidation{Field: "stripe_account_id", Message: "Identity verification must be completed before connecting a bank account"}
	}

	link, err := s.payments.CreateAccountLink(ctx, profile.StripeAccountID, s.fee.RefreshURL, s.fee.ReturnURL, "account_onboarding")
	if err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepBankAccount, nil)
		return nil, err
	}

	return link, nil
}

// ConfirmBankConnection checks the processor for an attached bank
// account and records step 3 when one exists.
func (s *OnboardingService) ConfirmBankConnection(ctx context.Context, userID string) (bool, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.ConfirmBankConnection")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("bank_confirm", time.Since(start)) }()

	if userID == "" {
		return false, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.countExternalError(err)
		return false, err
	}
	if profile.StripeAccountID == "" {
		return false, &domain.ErrValidation{Field: "stripe_account_id", Message: "Identity verification must be completed before connecting a bank account"}
	}

	external, err := s.payments.ListExternalAccounts(ctx, profile.StripeAccountID)
	if err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepBankAccount, nil)
		return false, err
	}
	if len(external) == 0 {
		return false, nil
	}

	s.markStepComplete(ctx, userID, domain.StepBankAccount, nil)
	s.track(ctx, userID, domain.EventStepCompleted, domain.StepBankAccount, nil)
	return true, nil
}

// CreateOnboardingPayment starts step 4: creates the onboarding-fee
// payment intent with the washer's id stamped into metadata.
func (s *OnboardingService) CreateOnboardingPayment(ctx context.Context, userID string) (*domain.PaymentIntent, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.CreateOnboardingPayment")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("payment_create", time.Since(start)) }()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.countExternalError(err)
		return nil, err
	}
	if profile.OnboardingFeePaid {
		return nil, &domain.ErrPayment{Reason: "Onboarding fee has already been paid"}
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, userID, s.fee.AmountCents, s.fee.Currency)
	if err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepPayment, nil)
		return nil, err
	}

	return intent, nil
}

// ConfirmOnboardingPayment completes step 4. The intent must have
// succeeded and must carry the caller's user id in metadata; the
// ownership check stops one washer confirming another's payment.
func (s *OnboardingService) ConfirmOnboardingPayment(ctx context.Context, userID, intentID string) (*domain.OnboardingStatus, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.ConfirmOnboardingPayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("intent.id", intentID),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("payment_confirm", time.Since(start)) }()

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "User ID is required"}
	}
	if intentID == "" {
		return nil, &domain.ErrValidation{Field: "payment_intent_id", Message: "Payment intent ID is required"}
	}

	// The intent and the profile come from independent sources;
	// fetch both at once.
	var (
		intent  *domain.PaymentIntent
		profile *domain.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		intent, err = s.payments.GetPaymentIntent(gctx, intentID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.profiles.GetProfile(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepPayment, nil)
		return nil, err
	}

	if intent.Metadata["user_id"] != userID {
		s.track(ctx, userID, domain.EventStepFailed, domain.StepPayment, map[string]string{"reason": "ownership_mismatch"})
		return nil, &domain.ErrPayment{Reason: "Payment does not belong to this user"}
	}
	if intent.Status != domain.PaymentIntentSucceeded {
		return nil, &domain.ErrPayment{Reason: "Payment has not succeeded"}
	}

	// The fee flag is the critical write for this step.
	if err := s.profiles.UpdateProfile(ctx, userID, map[string]any{"onboarding_fee_paid": true}); err != nil {
		s.countExternalError(err)
		s.track(ctx, userID, domain.EventStepFailed, domain.StepPayment, nil)
		return nil, err
	}
	profile.OnboardingFeePaid = true

	s.markStepComplete(ctx, userID, domain.StepPayment, nil)
	s.track(ctx, userID, domain.EventPaymentConfirmed, domain.StepPayment, map[string]string{"payment_intent_id": intentID})
	s.track(ctx, userID, domain.EventStepCompleted, domain.StepPayment, nil)

	return s.GetOnboardingStatus(ctx, userID)
}

// CompleteOnboarding is the final step handler: it verifies all four
// steps are done and emits the completion event.
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.CompleteOnboarding")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	status, err := s.GetOnboardingStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !status.IsComplete || len(status.CompletedSteps) != domain.TotalSteps {
		return nil, &domain.ErrValidation{Field: "onboarding", Message: "Onboarding is not complete"}
	}

	s.track(ctx, userID, domain.EventOnboardingDone, 0, nil)
	return status, nil
}
