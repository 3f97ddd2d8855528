package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/service"
)

// Maximum accepted age of a webhook timestamp; older deliveries are
// treated as replays.
const webhookTolerance = 5 * time.Minute

// stripeWebhookHandler ingests processor events. Only account.updated
// is acted on (it refreshes the cached account status); everything
// else is acknowledged and ignored.
func stripeWebhookHandler(svc *service.OnboardingService, webhookSecret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/stripe")
		defer span.End()

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 256<<10))
		if err != nil {
			writeFailure(w, http.StatusBadRequest, errTypeValidation, "Could not read payload")
			return
		}

		if err := verifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"), webhookSecret, time.Now()); err != nil {
			logger.Warn("webhook: signature verification failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeFailure(w, http.StatusUnauthorized, errTypeAuth, "Invalid webhook signature")
			return
		}

		var event struct {
			Type string `json:"type"`
			Data struct {
				Object json.RawMessage `json:"object"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &event); err != nil {
			writeFailure(w, http.StatusBadRequest, errTypeValidation, "Invalid event payload")
			return
		}

		if event.Type != "account.updated" {
			logger.Debug("webhook: ignoring event", zap.String("type", event.Type))
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}

		var details domain.AccountDetails
		if err := json.Unmarshal(event.Data.Object, &details); err != nil {
			writeFailure(w, http.StatusBadRequest, errTypeValidation, "Invalid account object")
			return
		}

		if err := svc.HandleAccountUpdated(ctx, &details); err != nil {
			var notFound *domain.ErrNotFound
			if errors.As(err, &notFound) {
				// A missing profile is not the processor's problem;
				// acknowledge so the delivery is not retried forever.
				logger.Warn("webhook: no profile for account",
					zap.String("account_id", details.ID),
					zap.Error(err),
				)
				writeJSON(w, http.StatusOK, map[string]bool{"received": true})
				return
			}

			// Anything else is a transient failure on our side; a 5xx
			// keeps the delivery in the processor's retry queue.
			logger.Error("webhook: failed to apply account update",
				zap.String("account_id", details.ID),
				zap.Error(err),
			)
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

// verifyWebhookSignature checks the Stripe-Signature header: HMAC-SHA256
// of "<timestamp>.<payload>" with the webhook secret, with a bounded
// timestamp skew.
func verifyWebhookSignature(payload []byte, header, secret string, now time.Time) error {
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %w", err)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}
	age := now.Sub(time.Unix(timestamp, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}
