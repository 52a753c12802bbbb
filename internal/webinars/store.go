// Package webinars holds the live-session status of webinars. Metadata CRUD (title,
// schedule, embed URL) is owned by another service; the engine only reads and moves status.
package webinars

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Store is the webinar status data access used by the lifecycle controller.
type Store interface {
	// Create registers a scheduled webinar, assigning an id when w.ID is nil.
	Create(ctx context.Context, w *models.Webinar) error
	// Get returns models.ErrNotFound for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	// Transition moves the webinar to `to` if its current status is one of `from`.
	// It returns models.ErrConflict when the guard does not match.
	Transition(ctx context.Context, id uuid.UUID, from []models.WebinarStatus, to models.WebinarStatus, at time.Time) (*models.Webinar, error)
}

func containsStatus(list []models.WebinarStatus, s models.WebinarStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func applyTransition(w *models.Webinar, to models.WebinarStatus, at time.Time) {
	w.Status = to
	switch to {
	case models.WebinarLive:
		if w.StartedAt == nil {
			t := at
			w.StartedAt = &t
		}
	case models.WebinarEnded:
		t := at
		w.EndedAt = &t
	}
}
