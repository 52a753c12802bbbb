// Package responses ingests participant responses and computes live tallies.
package responses

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Store persists at most one response per (interaction, participant).
//
// Writes made while the interaction is active are guarded: a store that can see
// interaction status returns models.ErrConflict and writes nothing once the
// interaction has left active. Stores without that view rely on the caller's
// InteractionGetter.HoldStatus.
type Store interface {
	// Insert stores r only if no response exists yet. When one does, it is returned
	// with inserted=false and r is discarded. requireActive guards the write.
	Insert(ctx context.Context, r *models.Response, requireActive bool) (stored *models.Response, inserted bool, err error)
	// Upsert stores r, replacing the answer and timestamp of an existing response.
	// It is always guarded.
	Upsert(ctx context.Context, r *models.Response) (*models.Response, error)
	Get(ctx context.Context, interactionID, participantID uuid.UUID) (*models.Response, error)
	// List returns an interaction's responses in submission order.
	List(ctx context.Context, interactionID uuid.UUID) ([]models.Response, error)

	SaveSnapshot(ctx context.Context, s *models.TallySnapshot) error
	GetSnapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error)
}

// InteractionGetter reads interactions for admission checks.
type InteractionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error)
	// HoldStatus keeps the webinar's interactions in their status until release.
	HoldStatus(webinarID uuid.UUID) (release func())
}
