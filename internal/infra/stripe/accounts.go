package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// accountResponse is the subset of the account object we consume.
type accountResponse struct {
	ID               string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	Requirements     struct {
		CurrentlyDue        []string `json:"currently_due"`
		EventuallyDue       []string `json:"eventually_due"`
		PastDue             []string `json:"past_due"`
		PendingVerification []string `json:"pending_verification"`
		DisabledReason      string   `json:"disabled_reason"`
	} `json:"requirements"`
}

func (r *accountResponse) toDomain() *domain.AccountDetails {
	return &domain.AccountDetails{
		ID:               r.ID,
		DetailsSubmitted: r.DetailsSubmitted,
		ChargesEnabled:   r.ChargesEnabled,
		PayoutsEnabled:   r.PayoutsEnabled,
		Requirements: domain.AccountRequirements{
			CurrentlyDue:        r.Requirements.CurrentlyDue,
			EventuallyDue:       r.Requirements.EventuallyDue,
			PastDue:             r.Requirements.PastDue,
			PendingVerification: r.Requirements.PendingVerification,
			DisabledReason:      r.Requirements.DisabledReason,
		},
	}
}

// CreateAccount creates an express connected account for a washer,
// stamping the user id into metadata so the account can be traced back.
func (c *Client) CreateAccount(ctx context.Context, userID, email string) (*domain.AccountDetails, error) {
	ctx, span := tracer.Start(ctx, "Stripe.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	form := url.Values{}
	form.Set("type", "express")
	form.Set("metadata[user_id]", userID)
	if email != "" {
		form.Set("email", email)
	}
	form.Set("capabilities[card_payments][requested]", "true")
	form.Set("capabilities[transfers][requested]", "true")

	var resp accountResponse
	err := c.execute(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/v1/accounts", form, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// GetAccount fetches the live verification state of a connected account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*domain.AccountDetails, error) {
	ctx, span := tracer.Start(ctx, "Stripe.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var resp accountResponse
	err := c.execute(ctx, func() error {
		return c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/accounts/%s", accountID), nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// UpdateAccount patches KYC fields on a connected account. Keys are
// Stripe form paths, e.g. "individual[first_name]".
func (c *Client) UpdateAccount(ctx context.Context, accountID string, fields map[string]string) (*domain.AccountDetails, error) {
	ctx, span := tracer.Start(ctx, "Stripe.UpdateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}

	var resp accountResponse
	err := c.execute(ctx, func() error {
		return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/accounts/%s", accountID), form, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// CreateAccountLink creates a one-time hosted URL for a connected
// account. linkType is "account_onboarding" or "account_update".
func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL, linkType string) (*domain.AccountLink, error) {
	ctx, span := tracer.Start(ctx, "Stripe.CreateAccountLink")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	form := url.Values{}
	form.Set("account", accountID)
	form.Set("refresh_url", refreshURL)
	form.Set("return_url", returnURL)
	form.Set("type", linkType)

	var resp struct {
		URL       string `json:"url"`
		ExpiresAt int64  `json:"expires_at"`
	}
	err := c.execute(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/v1/account_links", form, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &domain.AccountLink{URL: resp.URL, ExpiresAt: resp.ExpiresAt}, nil
}

// ListExternalAccounts lists bank accounts attached to a connected
// account.
func (c *Client) ListExternalAccounts(ctx context.Context, accountID string) ([]domain.ExternalAccount, error) {
	ctx, span := tracer.Start(ctx, "Stripe.ListExternalAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var resp struct {
		Data []struct {
			ID       string `json:"id"`
			BankName string `json:"bank_name"`
			Last4    string `json:"last4"`
			Currency string `json:"currency"`
			Default  bool   `json:"default_for_currency"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/v1/accounts/%s/external_accounts?object=bank_account&limit=10", accountID)
	err := c.execute(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.ExternalAccount, 0, len(resp.Data))
	for _, d := range resp.Data {
		accounts = append(accounts, domain.ExternalAccount{
			ID:       d.ID,
			BankName: d.BankName,
			Last4:    d.Last4,
			Currency: d.Currency,
			Default:  d.Default,
		})
	}
	return accounts, nil
}
