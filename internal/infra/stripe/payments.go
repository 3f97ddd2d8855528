package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// paymentIntentResponse is the subset of the payment intent object we
// consume.
type paymentIntentResponse struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

func (r *paymentIntentResponse) toDomain() *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:           r.ID,
		ClientSecret: r.ClientSecret,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Status:       r.Status,
		Metadata:     r.Metadata,
	}
}

// CreatePaymentIntent creates the onboarding-fee payment intent on the
// platform account, with the paying user's id in metadata. An
// idempotency key guards against double charges on retried requests.
func (c *Client) CreatePaymentIntent(ctx context.Context, userID string, amount int64, currency string) (*domain.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "Stripe.CreatePaymentIntent")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int64("amount", amount),
	)

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", amount))
	form.Set("currency", currency)
	form.Set("metadata[user_id]", userID)
	form.Set("metadata[purpose]", "washer_onboarding_fee")
	form.Set("automatic_payment_methods[enabled]", "true")

	idempotencyKey := uuid.NewString()

	var resp paymentIntentResponse
	err := c.execute(ctx, func() error {
		return c.doWithIdempotencyKey(ctx, http.MethodPost, "/v1/payment_intents", form, idempotencyKey, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// GetPaymentIntent retrieves a payment intent by id.
func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	ctx, span := tracer.Start(ctx, "Stripe.GetPaymentIntent")
	defer span.End()
	span.SetAttributes(attribute.String("intent.id", intentID))

	var resp paymentIntentResponse
	err := c.execute(ctx, func() error {
		return c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/payment_intents/%s", intentID), nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}
