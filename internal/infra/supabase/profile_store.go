package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
	"github.com/sudsyapp/washer-onboarding-go/internal/infra/resilience"
)

// supabaseProfile maps profiles table columns to our domain.
type supabaseProfile struct {
	ID                  string `json:"id"`
	Role                string `json:"role"`
	FullName            string `json:"full_name"`
	PhoneNumber         string `json:"phone_number"`
	StripeAccountID     string `json:"stripe_account_id"`
	StripeAccountStatus string `json:"stripe_account_status"`
	OnboardingFeePaid   bool   `json:"onboarding_fee_paid"`
}

// GetProfile fetches a user profile. Implements port.ProfileStore.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var profile *domain.Profile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("profiles?id=eq.%s&limit=1", url.QueryEscape(userID))
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: userID})
			}

			var rows []supabaseProfile
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode profile: %w", err)
			}
			if len(rows) == 0 {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: userID})
			}

			p := rows[0]
			profile = &domain.Profile{
				ID:                  p.ID,
				Role:                p.Role,
				FullName:            p.FullName,
				PhoneNumber:         p.PhoneNumber,
				StripeAccountID:     p.StripeAccountID,
				StripeAccountStatus: p.StripeAccountStatus,
				OnboardingFeePaid:   p.OnboardingFeePaid,
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}

	return profile, nil
}

// UpdateProfile patches profile columns for a user.
func (c *Client) UpdateProfile(ctx context.Context, userID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("profiles?id=eq.%s", url.QueryEscape(userID))
			return c.doPatch(ctx, path, updates)
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}
	return nil
}

// FindProfileByAccountID locates the profile owning a connected
// account. Used by the webhook consumer.
func (c *Client) FindProfileByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindProfileByAccountID")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var profile *domain.Profile

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("profiles?stripe_account_id=eq.%s&limit=1", url.QueryEscape(accountID))
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: accountID})
			}

			var rows []supabaseProfile
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode profile: %w", err)
			}
			if len(rows) == 0 {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: accountID})
			}

			p := rows[0]
			profile = &domain.Profile{
				ID:                  p.ID,
				Role:                p.Role,
				FullName:            p.FullName,
				PhoneNumber:         p.PhoneNumber,
				StripeAccountID:     p.StripeAccountID,
				StripeAccountStatus: p.StripeAccountStatus,
				OnboardingFeePaid:   p.OnboardingFeePaid,
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}

	return profile, nil
}
