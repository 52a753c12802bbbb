// Package interactions holds interaction records and the lifecycle state machine
// draft -> active -> ended, with at most one active interaction per webinar.
package interactions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Store is pure data access for interactions. Status changes are guarded updates:
// when the guard does not match they return models.ErrConflict and change nothing.
type Store interface {
	// Create saves a draft, assigning ID, OrderIndex and CreatedAt.
	Create(ctx context.Context, i *models.Interaction) error
	Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error)
	// ListByWebinar returns interactions in order_index order.
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]*models.Interaction, error)
	// Active returns the webinar's active interaction, or nil.
	Active(ctx context.Context, webinarID uuid.UUID) (*models.Interaction, error)
	// Activate atomically ends the webinar's currently active interaction (if any) and
	// moves the target from draft to active. ended is nil when nothing was active.
	Activate(ctx context.Context, id uuid.UUID, at time.Time) (activated, ended *models.Interaction, err error)
	// End moves an active interaction to ended.
	End(ctx context.Context, id uuid.UUID, at time.Time) (*models.Interaction, error)
	// EndActive ends whatever interaction is active in the webinar; nil when none was.
	EndActive(ctx context.Context, webinarID uuid.UUID, at time.Time) (*models.Interaction, error)
	// DeleteDraft removes a draft interaction.
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}
