// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// ProfileStore handles the per-user profiles table.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, updates map[string]any) error
	FindProfileByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
}

// ApplicationStore handles washer_applications rows (1:1 with washer
// profiles).
type ApplicationStore interface {
	GetApplication(ctx context.Context, userID string) (*domain.WasherApplication, error)
	UpsertApplication(ctx context.Context, app *domain.WasherApplication) error
}

// ProgressStore handles onboarding_progress rows. Upsert is keyed by
// user id; progress rows are never deleted.
type ProgressStore interface {
	GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error)
	UpsertProgress(ctx context.Context, rec *domain.ProgressRecord) error
}

// EventStore persists analytics events. Callers treat failures as
// non-fatal.
type EventStore interface {
	InsertEvent(ctx context.Context, ev *domain.AnalyticsEvent) error
}

// EventSink receives analytics events fire-and-forget. Implementations
// must never block the caller on downstream failures.
type EventSink interface {
	Track(ctx context.Context, ev *domain.AnalyticsEvent)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
