package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/service"
)

// ============================================================
// Onboarding status: GET /v1/onboarding/status
// ============================================================

func getStatusHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/onboarding/status")
		defer span.End()

		status, err := svc.GetOnboardingStatus(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeSuccess(w, status, "")
	}
}

// ============================================================
// Step 1: POST /v1/onboarding/profile
// ============================================================

func saveProfileHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/profile")
		defer span.End()

		var input domain.WasherApplication
		if !decodeBody(w, r, &input) {
			return
		}

		app, err := svc.SaveProfileSetup(ctx, UserIDFromContext(ctx), &input)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeSuccess(w, app, "Profile setup saved")
	}
}

// ============================================================
// Step 2: POST /v1/onboarding/verification
// ============================================================

func submitVerificationHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/verification")
		defer span.End()

		var sub domain.KYCSubmission
		if !decodeBody(w, r, &sub) {
			return
		}

		details, accountStatus, err := svc.SubmitVerification(ctx, UserIDFromContext(ctx), &sub)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeSuccess(w, map[string]any{
			"account_id":     details.ID,
			"account_status": accountStatus,
			"requirements":   details.Requirements,
		}, "Verification details submitted")
	}
}

// ============================================================
// Step 3: POST /v1/onboarding/bank-link, POST /v1/onboarding/bank-confirm
// ============================================================

func bankLinkHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/bank-link")
		defer span.End()

		link, err := svc.CreateBankConnectionLink(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeSuccess(w, link, "")
	}
}

func bankConfirmHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/bank-confirm")
		defer span.End()

		connected, err := svc.ConfirmBankConnection(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		msg := "No bank account connected yet"
		if connected {
			msg = "Bank account connected"
		}
		writeSuccess(w, map[string]bool{"bank_connected": connected}, msg)
	}
}

// ============================================================
// Step 4: POST /v1/onboarding/payment, POST /v1/onboarding/payment/confirm
// ============================================================

func createPaymentHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/payment")
		defer span.End()

		intent, err := svc.CreateOnboardingPayment(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeSuccess(w, map[string]any{
			"payment_intent_id": intent.ID,
			"client_secret":     intent.ClientSecret,
			"amount":            intent.Amount,
			"currency":          intent.Currency,
		}, "")
	}
}

func confirmPaymentHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/payment/confirm")
		defer span.End()

		var body struct {
			PaymentIntentID string `json:"payment_intent_id"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		status, err := svc.ConfirmOnboardingPayment(ctx, UserIDFromContext(ctx), body.PaymentIntentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeSuccess(w, status, "Onboarding payment confirmed")
	}
}

// ============================================================
// Completion: POST /v1/onboarding/complete
// ============================================================

func completeOnboardingHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/complete")
		defer span.End()

		status, err := svc.CompleteOnboarding(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeSuccess(w, status, "Onboarding complete")
	}
}

// ============================================================
// Access gate: GET /v1/onboarding/access
// ============================================================

func accessHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/onboarding/access")
		defer span.End()

		decision, err := svc.CanAccessWasherFeatures(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeSuccess(w, decision, "")
	}
}
