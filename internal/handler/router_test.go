package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/observability"
)

type stubPinger struct{ err error }

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func newTestRouter(pinger Pinger) http.Handler {
	return NewRouter(nil, Config{
		JWTSecret:           "test-secret",
		StripeWebhookSecret: "whsec_test",
	}, observability.NewMetrics(), pinger, zap.NewNop())
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(&stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_Readyz(t *testing.T) {
	t.Run("backend up", func(t *testing.T) {
		router := newTestRouter(&stubPinger{})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("backend down", func(t *testing.T) {
		router := newTestRouter(&stubPinger{err: errors.New("connection refused")})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_OnboardingRequiresAuth(t *testing.T) {
	router := newTestRouter(&stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/v1/onboarding/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body serviceResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	if body.Success || body.Error == nil || body.Error.Type != errTypeAuth {
		t.Errorf("expected auth_error envelope, got %+v", body)
	}
}

func TestRouter_WebhookRejectsBadSignature(t *testing.T) {
	router := newTestRouter(&stubPinger{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", nil)
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad signature, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	protected := JWTAuthMiddleware(secret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"user_id": UserIDFromContext(r.Context())})
	}))

	makeToken := func(secret, subject string, expiry time.Duration) string {
		claims := jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		return token
	}

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+makeToken(secret, "user-123", time.Hour))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body map[string]string
		json.NewDecoder(rec.Body).Decode(&body)
		if body["user_id"] != "user-123" {
			t.Errorf("expected subject injected, got %q", body["user_id"])
		}
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+makeToken(secret, "user-123", -time.Hour))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+makeToken("other-secret", "user-123", time.Hour))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+makeToken(secret, "", time.Hour))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", &domain.ErrValidation{Field: "service_address", Message: "Service area is required"}, http.StatusBadRequest, errTypeValidation},
		{"unauthorized", &domain.ErrUnauthorized{}, http.StatusUnauthorized, errTypeAuth},
		{"forbidden", &domain.ErrForbidden{Action: "washer features"}, http.StatusForbidden, errTypeAuth},
		{"payment", &domain.ErrPayment{Reason: "Payment has not succeeded"}, http.StatusUnprocessableEntity, errTypePayment},
		{"stripe", &domain.ErrStripe{Code: "card_declined", Message: "declined"}, http.StatusBadGateway, errTypeStripe},
		{"circuit open", &domain.ErrCircuitOpen{Service: "stripe"}, http.StatusServiceUnavailable, errTypeNetwork},
		{"network", &domain.ErrNetwork{Service: "stripe", Err: errors.New("dial tcp")}, http.StatusServiceUnavailable, errTypeNetwork},
		{"timeout", &domain.ErrTimeout{Operation: "get account"}, http.StatusGatewayTimeout, errTypeNetwork},
		{"not found", &domain.ErrNotFound{Resource: "profile", ID: "u1"}, http.StatusNotFound, errTypeUnknown},
		{"storage", &domain.ErrExternalService{Service: "supabase/profiles", Err: errors.New("500")}, http.StatusInternalServerError, errTypeDatabase},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, errTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err, zap.NewNop())

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body serviceResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("invalid envelope: %v", err)
			}
			if body.Success {
				t.Error("error envelope must not be successful")
			}
			if body.Error == nil || body.Error.Type != tt.wantType {
				t.Errorf("expected error type %q, got %+v", tt.wantType, body.Error)
			}
		})
	}
}
