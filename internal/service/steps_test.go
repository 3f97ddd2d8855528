package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

func TestSaveProfileSetup_Validation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name    string
		input   *domain.WasherApplication
		message string
	}{
		{
			name:    "missing service area",
			input:   &domain.WasherApplication{PhoneNumber: "555-0100", ServiceOfferings: []string{"exterior"}, WasherBio: "bio"},
			message: "Service area is required",
		},
		{
			name:    "missing phone number",
			input:   &domain.WasherApplication{ServiceAddress: "123 Main St", ServiceOfferings: []string{"exterior"}, WasherBio: "bio"},
			message: "Phone number is required",
		},
		{
			name:    "no offerings",
			input:   &domain.WasherApplication{ServiceAddress: "123 Main St", PhoneNumber: "555-0100", WasherBio: "bio"},
			message: "At least one service offering is required",
		},
		{
			name:    "missing bio",
			input:   &domain.WasherApplication{ServiceAddress: "123 Main St", PhoneNumber: "555-0100", ServiceOfferings: []string{"exterior"}},
			message: "Washer bio is required",
		},
		{
			name:    "whitespace-only service area",
			input:   &domain.WasherApplication{ServiceAddress: "   ", PhoneNumber: "555-0100", ServiceOfferings: []string{"exterior"}, WasherBio: "bio"},
			message: "Service area is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SaveProfileSetup(context.Background(), "u1", tt.input)

			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if validation.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, validation.Message)
			}
		})
	}
}

func TestSaveProfileSetup_RecordsStepAndEvent(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")

	app, err := f.svc.SaveProfileSetup(context.Background(), "u1", &domain.WasherApplication{
		ServiceAddress:   "  123 Main St  ",
		PhoneNumber:      "555-0100",
		ServiceOfferings: []string{"exterior_wash"},
		WasherBio:        "Ten years of detailing.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ServiceAddress != "123 Main St" {
		t.Errorf("expected trimmed address, got %q", app.ServiceAddress)
	}

	rec, err := f.progress.GetProgress(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected progress record: %v", err)
	}
	if !rec.HasStep(domain.StepProfileSetup) {
		t.Errorf("expected step 1 recorded, got %v", rec.CompletedSteps)
	}
	if rec.StepData.ProfileSetup == nil {
		t.Error("expected application stored in step data")
	}

	if got := f.sink.eventsOfType(domain.EventStepCompleted); len(got) != 1 || got[0].Step != domain.StepProfileSetup {
		t.Errorf("expected one step-completed event for step 1, got %+v", got)
	}
}

func TestSaveProfileSetup_Idempotent(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")
	input := &domain.WasherApplication{
		ServiceAddress:   "123 Main St",
		PhoneNumber:      "555-0100",
		ServiceOfferings: []string{"exterior_wash"},
		WasherBio:        "bio",
	}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.SaveProfileSetup(context.Background(), "u1", input); err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
	}

	rec, _ := f.progress.GetProgress(context.Background(), "u1")
	if len(rec.CompletedSteps) != 1 {
		t.Errorf("re-saving must not duplicate the step, got %v", rec.CompletedSteps)
	}
}

func TestSaveProfileSetup_StoreFailureSurfacesAndTracks(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")
	f.apps.upsertErr = &domain.ErrExternalService{Service: "supabase/washer_applications", Err: errors.New("500")}

	_, err := f.svc.SaveProfileSetup(context.Background(), "u1", &domain.WasherApplication{
		ServiceAddress:   "123 Main St",
		PhoneNumber:      "555-0100",
		ServiceOfferings: []string{"exterior_wash"},
		WasherBio:        "bio",
	})

	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if got := f.sink.eventsOfType(domain.EventStepFailed); len(got) != 1 {
		t.Errorf("expected one step-failed event, got %+v", got)
	}
}

func TestSubmitVerification_CreatesAccountOnce(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")

	sub := &domain.KYCSubmission{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: "1990-04-02",
	}
	details, accountStatus, err := f.svc.SubmitVerification(context.Background(), "u1", sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.ID != "acct_u1" {
		t.Errorf("unexpected account id %q", details.ID)
	}
	// A brand-new account has submitted nothing yet.
	if accountStatus != domain.AccountStatusIncomplete {
		t.Errorf("expected incomplete status, got %q", accountStatus)
	}

	p, _ := f.profiles.GetProfile(context.Background(), "u1")
	if p.StripeAccountID != "acct_u1" {
		t.Errorf("account id not persisted on profile: %q", p.StripeAccountID)
	}

	// Retrying must reuse the stored account, not create a second one.
	f.payments.createAccountErr = errors.New("should not create twice")
	if _, _, err := f.svc.SubmitVerification(context.Background(), "u1", sub); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestSubmitVerification_SplitsDateOfBirth(t *testing.T) {
	f := newFixture()
	p := f.addWasher("u1")
	p.StripeAccountID = "acct_u1"
	f.payments.accounts["acct_u1"] = completeAccount("acct_u1")

	_, _, err := f.svc.SubmitVerification(context.Background(), "u1", &domain.KYCSubmission{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: "1990-04-02",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := f.payments.lastUpdateFields
	if fields["individual[dob][year]"] != "1990" ||
		fields["individual[dob][month]"] != "04" ||
		fields["individual[dob][day]"] != "02" {
		t.Errorf("date of birth not split into form fields: %v", fields)
	}
}

func TestSubmitVerification_MarksStepOnlyWhenVerified(t *testing.T) {
	f := newFixture()
	p := f.addWasher("u1")
	p.StripeAccountID = "acct_u1"
	f.payments.accounts["acct_u1"] = completeAccount("acct_u1")

	_, accountStatus, err := f.svc.SubmitVerification(context.Background(), "u1", &domain.KYCSubmission{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: "1990-04-02",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accountStatus != domain.AccountStatusComplete {
		t.Fatalf("expected complete status, got %q", accountStatus)
	}

	rec, err := f.progress.GetProgress(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected progress record: %v", err)
	}
	if !rec.HasStep(domain.StepVerification) {
		t.Errorf("expected step 2 recorded, got %v", rec.CompletedSteps)
	}
}

func TestCreateBankConnectionLink_RequiresVerificationFirst(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")

	_, err := f.svc.CreateBankConnectionLink(context.Background(), "u1")

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmBankConnection(t *testing.T) {
	f := newFixture()
	p := f.addWasher("u1")
	p.StripeAccountID = "acct_u1"

	connected, err := f.svc.ConfirmBankConnection(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connected {
		t.Error("expected no bank account yet")
	}

	f.payments.external["acct_u1"] = []domain.ExternalAccount{{ID: "ba_1", Last4: "6789"}}

	connected, err = f.svc.ConfirmBankConnection(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !connected {
		t.Error("expected bank connection confirmed")
	}

	rec, _ := f.progress.GetProgress(context.Background(), "u1")
	if !rec.HasStep(domain.StepBankAccount) {
		t.Errorf("expected step 3 recorded, got %v", rec.CompletedSteps)
	}
}

func TestCreateOnboardingPayment_AlreadyPaid(t *testing.T) {
	f := newFixture()
	p := f.addWasher("u1")
	p.OnboardingFeePaid = true

	_, err := f.svc.CreateOnboardingPayment(context.Background(), "u1")

	var payment *domain.ErrPayment
	if !errors.As(err, &payment) {
		t.Fatalf("expected payment error, got %v", err)
	}
}

func TestCreateOnboardingPayment_StampsUser(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")

	intent, err := f.svc.CreateOnboardingPayment(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Amount != 5000 || intent.Currency != "usd" {
		t.Errorf("unexpected fee: %d %s", intent.Amount, intent.Currency)
	}
	if intent.Metadata["user_id"] != "u1" {
		t.Errorf("expected user id stamped into metadata, got %v", intent.Metadata)
	}
}

func TestConfirmOnboardingPayment_OwnershipMismatch(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")
	f.addWasher("u2")
	// u2's intent, already succeeded.
	f.payments.intents["pi_u2"] = &domain.PaymentIntent{
		ID:       "pi_u2",
		Status:   domain.PaymentIntentSucceeded,
		Metadata: map[string]string{"user_id": "u2"},
	}

	_, err := f.svc.ConfirmOnboardingPayment(context.Background(), "u1", "pi_u2")

	var payment *domain.ErrPayment
	if !errors.As(err, &payment) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if payment.Reason != "Payment does not belong to this user" {
		t.Errorf("unexpected reason: %q", payment.Reason)
	}

	p, _ := f.profiles.GetProfile(context.Background(), "u1")
	if p.OnboardingFeePaid {
		t.Error("fee flag must not be set on an ownership mismatch")
	}

	failed := f.sink.eventsOfType(domain.EventStepFailed)
	if len(failed) != 1 || failed[0].Properties["reason"] != "ownership_mismatch" {
		t.Errorf("expected ownership_mismatch failure event, got %+v", failed)
	}
}

func TestConfirmOnboardingPayment_NotSucceeded(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")
	f.payments.intents["pi_u1"] = &domain.PaymentIntent{
		ID:       "pi_u1",
		Status:   "requires_payment_method",
		Metadata: map[string]string{"user_id": "u1"},
	}

	_, err := f.svc.ConfirmOnboardingPayment(context.Background(), "u1", "pi_u1")

	var payment *domain.ErrPayment
	if !errors.As(err, &payment) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if payment.Reason != "Payment has not succeeded" {
		t.Errorf("unexpected reason: %q", payment.Reason)
	}
}

func TestConfirmOnboardingPayment_Success(t *testing.T) {
	f := newFixture()
	p := f.addWasher("u1")
	p.StripeAccountID = "acct_u1"
	p.StripeAccountStatus = domain.AccountStatusComplete
	f.addFilledApplication("u1")
	f.payments.accounts["acct_u1"] = completeAccount("acct_u1")
	f.payments.external["acct_u1"] = []domain.ExternalAccount{{ID: "ba_1"}}
	f.progress.records["u1"] = &domain.ProgressRecord{
		UserID:         "u1",
		CurrentStep:    domain.StepPayment,
		CompletedSteps: []int{1, 2, 3},
	}
	f.payments.intents["pi_u1"] = &domain.PaymentIntent{
		ID:       "pi_u1",
		Status:   domain.PaymentIntentSucceeded,
		Metadata: map[string]string{"user_id": "u1"},
	}

	status, err := f.svc.ConfirmOnboardingPayment(context.Background(), "u1", "pi_u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsComplete || len(status.CompletedSteps) != domain.TotalSteps {
		t.Errorf("expected complete status, got %+v", status)
	}

	refreshed, _ := f.profiles.GetProfile(context.Background(), "u1")
	if !refreshed.OnboardingFeePaid {
		t.Error("expected fee flag persisted")
	}

	// Confirming the same intent again is a no-op, not an error.
	if _, err := f.svc.ConfirmOnboardingPayment(context.Background(), "u1", "pi_u1"); err != nil {
		t.Fatalf("re-confirming should be idempotent: %v", err)
	}
}

func TestCompleteOnboarding_RejectsIncomplete(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")
	f.progress.records["u1"] = &domain.ProgressRecord{
		UserID:         "u1",
		CurrentStep:    domain.StepPayment,
		CompletedSteps: []int{1, 2, 3},
	}

	_, err := f.svc.CompleteOnboarding(context.Background(), "u1")

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if validation.Message != "Onboarding is not complete" {
		t.Errorf("unexpected message: %q", validation.Message)
	}
}

func TestCompleteOnboarding_Success(t *testing.T) {
	f := newFixture()
	f.addWasher("u1")
	f.progress.records["u1"] = &domain.ProgressRecord{
		UserID:         "u1",
		CurrentStep:    domain.StepPayment,
		CompletedSteps: []int{1, 2, 3, 4},
		IsComplete:     true,
	}

	status, err := f.svc.CompleteOnboarding(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsComplete {
		t.Error("expected complete status")
	}
	if got := f.sink.eventsOfType(domain.EventOnboardingDone); len(got) != 1 {
		t.Errorf("expected one completion event, got %+v", got)
	}
}
