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

// supabaseProgress maps onboarding_progress table columns.
// completed_steps is an int[] column; step_data is jsonb.
type supabaseProgress struct {
	UserID         string          `json:"user_id"`
	CurrentStep    int             `json:"current_step"`
	CompletedSteps []int           `json:"completed_steps"`
	IsComplete     bool            `json:"is_complete"`
	StepData       domain.StepData `json:"step_data"`
}

// GetProgress fetches the onboarding progress record for a user.
// Implements port.ProgressStore.
func (c *Client) GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProgress")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rec *domain.ProgressRecord

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("onboarding_progress?user_id=eq.%s&limit=1", url.QueryEscape(userID))
			body, err := c.doGet(ctx, path)
			if err != nil {
				return err
			}
			if body == nil || string(body) == "[]" {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "onboarding_progress", ID: userID})
			}

			var rows []supabaseProgress
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode onboarding progress: %w", err)
			}
			if len(rows) == 0 {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "onboarding_progress", ID: userID})
			}

			r := rows[0]
			rec = &domain.ProgressRecord{
				UserID:         r.UserID,
				CurrentStep:    r.CurrentStep,
				CompletedSteps: r.CompletedSteps,
				IsComplete:     r.IsComplete,
				StepData:       r.StepData,
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/onboarding_progress", Err: err}
	}

	return rec, nil
}

// UpsertProgress writes the progress record, keyed by user_id.
// Progress rows are never deleted; overwriting a step that is already
// recorded is a semantic no-op.
func (c *Client) UpsertProgress(ctx context.Context, rec *domain.ProgressRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertProgress")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", rec.UserID),
		attribute.Int("current_step", rec.CurrentStep),
	)

	row := supabaseProgress{
		UserID:         rec.UserID,
		CurrentStep:    rec.CurrentStep,
		CompletedSteps: rec.CompletedSteps,
		IsComplete:     rec.IsComplete,
		StepData:       rec.StepData,
	}

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doPost(ctx, "onboarding_progress?on_conflict=user_id", row,
				"resolution=merge-duplicates,return=minimal")
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/onboarding_progress", Err: err}
	}
	return nil
}
