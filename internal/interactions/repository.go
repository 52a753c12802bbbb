package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Repository is the Postgres Store. Transitions lock the webinar row so activations on
// one webinar are serialised; the partial unique index on active interactions backs it up.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an interactions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const interactionColumns = `id, webinar_id, variant, title, prompt, options, settings, status, order_index, created_at, activated_at, ended_at`

func scanInteraction(row pgx.Row) (*models.Interaction, error) {
	var i models.Interaction
	var variant, status string
	var options, settings []byte
	err := row.Scan(&i.ID, &i.WebinarID, &variant, &i.Title, &i.Prompt, &options, &settings, &status,
		&i.OrderIndex, &i.CreatedAt, &i.ActivatedAt, &i.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	i.Variant = models.Variant(variant)
	i.Status = models.InteractionStatus(status)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &i.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", i.ID, err)
		}
	}
	if i.Settings, err = models.ParseSettings(i.Variant, settings, models.BaseSettings{}); err != nil {
		return nil, fmt.Errorf("decode settings of %s: %w", i.ID, err)
	}
	return &i, nil
}

func lockWebinar(ctx context.Context, tx pgx.Tx, webinarID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM webinars WHERE id = $1 FOR UPDATE`, webinarID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

// Create inserts a draft with the next order_index for its webinar.
func (r *Repository) Create(ctx context.Context, i *models.Interaction) error {
	options := i.Options
	if options == nil {
		options = []models.Option{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	settingsJSON, err := json.Marshal(i.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	const q = `INSERT INTO interactions (webinar_id, variant, title, prompt, options, settings, status, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, 'draft',
			(SELECT COALESCE(MAX(order_index), 0) + 1 FROM interactions WHERE webinar_id = $1))
		RETURNING id, order_index, created_at`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockWebinar(ctx, tx, i.WebinarID); err != nil {
			return err
		}
		i.Status = models.StatusDraft
		return tx.QueryRow(ctx, q, i.WebinarID, string(i.Variant), i.Title, i.Prompt, optionsJSON, settingsJSON).
			Scan(&i.ID, &i.OrderIndex, &i.CreatedAt)
	})
}

// Get returns an interaction by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	return scanInteraction(r.pool.QueryRow(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE id = $1`, id))
}

// ListByWebinar returns a webinar's interactions in display order.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]*models.Interaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE webinar_id = $1 ORDER BY order_index`, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, i)
	}
	return list, rows.Err()
}

// Active returns the active interaction of a webinar, or nil.
func (r *Repository) Active(ctx context.Context, webinarID uuid.UUID) (*models.Interaction, error) {
	i, err := scanInteraction(r.pool.QueryRow(ctx,
		`SELECT `+interactionColumns+` FROM interactions WHERE webinar_id = $1 AND status = 'active'`, webinarID))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return i, err
}

// Activate ends the current active interaction and activates the draft in one transaction.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID, at time.Time) (activated, ended *models.Interaction, err error) {
	var webinarID uuid.UUID
	if err = r.pool.QueryRow(ctx, `SELECT webinar_id FROM interactions WHERE id = $1`, id).Scan(&webinarID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, err
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockWebinar(ctx, tx, webinarID); err != nil {
			return err
		}
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM interactions WHERE id = $1`, id).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrNotFound
			}
			return err
		}
		if models.InteractionStatus(status) != models.StatusDraft {
			return models.ErrConflict
		}

		prev, err := scanInteraction(tx.QueryRow(ctx,
			`UPDATE interactions SET status = 'ended', ended_at = $2
			 WHERE webinar_id = $1 AND status = 'active' RETURNING `+interactionColumns, webinarID, at))
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return err
		default:
			ended = prev
		}

		activated, err = scanInteraction(tx.QueryRow(ctx,
			`UPDATE interactions SET status = 'active', activated_at = $2
			 WHERE id = $1 AND status = 'draft' RETURNING `+interactionColumns, id, at))
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrConflict
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return activated, ended, nil
}

// End transitions an active interaction to ended.
func (r *Repository) End(ctx context.Context, id uuid.UUID, at time.Time) (*models.Interaction, error) {
	i, err := scanInteraction(r.pool.QueryRow(ctx,
		`UPDATE interactions SET status = 'ended', ended_at = $2
		 WHERE id = $1 AND status = 'active' RETURNING `+interactionColumns, id, at))
	if errors.Is(err, models.ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrConflict
	}
	return i, err
}

// EndActive ends the webinar's active interaction, if any.
func (r *Repository) EndActive(ctx context.Context, webinarID uuid.UUID, at time.Time) (*models.Interaction, error) {
	i, err := scanInteraction(r.pool.QueryRow(ctx,
		`UPDATE interactions SET status = 'ended', ended_at = $2
		 WHERE webinar_id = $1 AND status = 'active' RETURNING `+interactionColumns, webinarID, at))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return i, err
}

// DeleteDraft deletes a draft interaction.
func (r *Repository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM interactions WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return models.ErrConflict
	}
	return nil
}
