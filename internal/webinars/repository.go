package webinars

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Repository handles webinar status persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectWebinar = `SELECT id, host_id, status, allow_late_responses, started_at, ended_at, created_at FROM webinars`

func scanWebinar(row pgx.Row) (*models.Webinar, error) {
	var w models.Webinar
	var status string
	err := row.Scan(&w.ID, &w.HostID, &status, &w.AllowLateResponses, &w.StartedAt, &w.EndedAt, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Status = models.WebinarStatus(status)
	return &w, nil
}

// Create registers a scheduled webinar. The webinar CRUD service may have created the
// row already, in which case models.ErrInvalidState is returned.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	const q = `INSERT INTO webinars (id, host_id, status, allow_late_responses)
		VALUES (COALESCE($1, gen_random_uuid()), $2, 'scheduled', $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, status, created_at`
	var id *uuid.UUID
	if w.ID != uuid.Nil {
		id = &w.ID
	}
	var status string
	err := r.pool.QueryRow(ctx, q, id, w.HostID, w.AllowLateResponses).Scan(&w.ID, &status, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: webinar %s is already registered", models.ErrInvalidState, w.ID)
	}
	if err != nil {
		return err
	}
	w.Status = models.WebinarStatus(status)
	return nil
}

// Get returns a webinar by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	return scanWebinar(r.pool.QueryRow(ctx, selectWebinar+` WHERE id = $1`, id))
}

// Transition moves the webinar status when the guard matches.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from []models.WebinarStatus, to models.WebinarStatus, at time.Time) (*models.Webinar, error) {
	const q = `UPDATE webinars SET status = $2,
			started_at = CASE WHEN $2 = 'live' THEN COALESCE(started_at, $3) ELSE started_at END,
			ended_at = CASE WHEN $2 = 'ended' THEN $3 ELSE ended_at END
		WHERE id = $1 AND status = ANY($4)
		RETURNING id, host_id, status, allow_late_responses, started_at, ended_at, created_at`
	guard := make([]string, len(from))
	for i, s := range from {
		guard[i] = string(s)
	}
	w, err := scanWebinar(r.pool.QueryRow(ctx, q, id, string(to), at, guard))
	if errors.Is(err, models.ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrConflict
	}
	return w, err
}
