package port

import (
	"context"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// PaymentAccounts is the payment-processor surface the onboarding flow
// touches: connected accounts, hosted onboarding links, external bank
// accounts, and the onboarding-fee payment intent.
type PaymentAccounts interface {
	CreateAccount(ctx context.Context, userID, email string) (*domain.AccountDetails, error)
	GetAccount(ctx context.Context, accountID string) (*domain.AccountDetails, error)
	UpdateAccount(ctx context.Context, accountID string, fields map[string]string) (*domain.AccountDetails, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL, linkType string) (*domain.AccountLink, error)
	ListExternalAccounts(ctx context.Context, accountID string) ([]domain.ExternalAccount, error)
	CreatePaymentIntent(ctx context.Context, userID string, amount int64, currency string) (*domain.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
}
