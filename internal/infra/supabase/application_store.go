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

// supabaseApplication maps washer_applications table columns.
type supabaseApplication struct {
	UserID           string   `json:"user_id"`
	ServiceAddress   string   `json:"service_address"`
	ServiceOfferings []string `json:"service_offerings"`
	WasherBio        string   `json:"washer_bio"`
	EquipmentDetails string   `json:"equipment_details"`
	PhoneNumber      string   `json:"phone_number"`
}

// GetApplication fetches the washer application for a user.
// Implements port.ApplicationStore.
func (c *Client) GetApplication(ctx context.Context, userID string) (*domain.WasherApplication, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetApplication")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var app *domain.WasherApplication

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("washer_applications?user_id=eq.%s&limit=1", url.QueryEscape(userID))
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "washer_application", ID: userID})
			}

			var rows []supabaseApplication
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode washer application: %w", err)
			}
			if len(rows) == 0 {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "washer_application", ID: userID})
			}

			r := rows[0]
			app = &domain.WasherApplication{
				UserID:           r.UserID,
				ServiceAddress:   r.ServiceAddress,
				ServiceOfferings: r.ServiceOfferings,
				WasherBio:        r.WasherBio,
				EquipmentDetails: r.EquipmentDetails,
				PhoneNumber:      r.PhoneNumber,
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/washer_applications", Err: err}
	}

	return app, nil
}

// UpsertApplication inserts or overwrites the washer application row
// for a user. Last write wins; the row is keyed by user_id.
func (c *Client) UpsertApplication(ctx context.Context, app *domain.WasherApplication) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertApplication")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", app.UserID))

	row := supabaseApplication{
		UserID:           app.UserID,
		ServiceAddress:   app.ServiceAddress,
		ServiceOfferings: app.ServiceOfferings,
		WasherBio:        app.WasherBio,
		EquipmentDetails: app.EquipmentDetails,
		PhoneNumber:      app.PhoneNumber,
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doPost(ctx, "washer_applications?on_conflict=user_id", row,
				"resolution=merge-duplicates,return=minimal")
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/washer_applications", Err: err}
	}
	return nil
}
