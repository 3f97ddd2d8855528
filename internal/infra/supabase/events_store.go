package supabase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// supabaseEvent maps analytics_events table columns.
type supabaseEvent struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	EventType  string            `json:"event_type"`
	Step       int               `json:"step"`
	Properties map[string]string `json:"properties"`
	OccurredAt string            `json:"occurred_at"`
}

// InsertEvent appends an analytics event. Implements port.EventStore.
// No retry here: events are best-effort and the caller already treats
// failures as non-fatal.
func (c *Client) InsertEvent(ctx context.Context, ev *domain.AnalyticsEvent) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", ev.Type))

	row := supabaseEvent{
		ID:         ev.ID,
		UserID:     ev.UserID,
		EventType:  ev.Type,
		Step:       ev.Step,
		Properties: ev.Properties,
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}

	_, err := c.doPost(ctx, "analytics_events", row, "return=minimal")
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/analytics_events", Err: err}
	}
	return nil
}
