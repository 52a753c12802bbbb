package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Repository handles response persistence. The (interaction_id, participant_id)
// primary key carries the one-response-per-participant rule.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a responses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const responseColumns = `interaction_id, participant_id, answer, submitted_at, correct, points`

func scanResponse(row pgx.Row) (*models.Response, error) {
	var r models.Response
	var answer []byte
	err := row.Scan(&r.InteractionID, &r.ParticipantID, &answer, &r.SubmittedAt, &r.Correct, &r.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answer, &r.Answer); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return &r, nil
}

// activeGuard holds a share lock on the interaction row, so a concurrent End waits for
// the write and a write that runs after End commits sees the ended status.
const activeGuard = `EXISTS (SELECT 1 FROM interactions WHERE id = $1 AND status = 'active' FOR SHARE)`

// Insert records the first response of a participant. Later calls return the stored one.
// With requireActive the insert only happens while the interaction is active.
func (r *Repository) Insert(ctx context.Context, resp *models.Response, requireActive bool) (*models.Response, bool, error) {
	answer, err := json.Marshal(resp.Answer)
	if err != nil {
		return nil, false, fmt.Errorf("encode answer: %w", err)
	}
	const query = `INSERT INTO responses (interaction_id, participant_id, answer, submitted_at, correct, points)
		SELECT $1::uuid, $2::uuid, $3::jsonb, $4::timestamptz, $5::boolean, $6::int
		WHERE NOT $7::boolean OR ` + activeGuard + `
		ON CONFLICT (interaction_id, participant_id) DO NOTHING
		RETURNING ` + responseColumns
	stored, err := scanResponse(r.pool.QueryRow(ctx, query,
		resp.InteractionID, resp.ParticipantID, answer, resp.SubmittedAt, resp.Correct, resp.Points, requireActive))
	if errors.Is(err, models.ErrNotFound) {
		existing, err := r.Get(ctx, resp.InteractionID, resp.ParticipantID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, models.ErrConflict
		}
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// Upsert records a response, overwriting answer and submitted_at of an existing one.
// Both the insert and the overwrite require the interaction to be active.
func (r *Repository) Upsert(ctx context.Context, resp *models.Response) (*models.Response, error) {
	answer, err := json.Marshal(resp.Answer)
	if err != nil {
		return nil, fmt.Errorf("encode answer: %w", err)
	}
	const query = `INSERT INTO responses (interaction_id, participant_id, answer, submitted_at, correct, points)
		SELECT $1::uuid, $2::uuid, $3::jsonb, $4::timestamptz, $5::boolean, $6::int
		WHERE ` + activeGuard + `
		ON CONFLICT (interaction_id, participant_id) DO UPDATE SET answer = EXCLUDED.answer, submitted_at = EXCLUDED.submitted_at
		WHERE EXISTS (SELECT 1 FROM interactions WHERE id = EXCLUDED.interaction_id AND status = 'active')
		RETURNING ` + responseColumns
	stored, err := scanResponse(r.pool.QueryRow(ctx, query,
		resp.InteractionID, resp.ParticipantID, answer, resp.SubmittedAt, resp.Correct, resp.Points))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrConflict
	}
	return stored, err
}

// Get returns one participant's response.
func (r *Repository) Get(ctx context.Context, interactionID, participantID uuid.UUID) (*models.Response, error) {
	return scanResponse(r.pool.QueryRow(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE interaction_id = $1 AND participant_id = $2`,
		interactionID, participantID))
}

// List returns responses in submission order.
func (r *Repository) List(ctx context.Context, interactionID uuid.UUID) ([]models.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE interaction_id = $1 ORDER BY submitted_at, participant_id`,
		interactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *resp)
	}
	return list, rows.Err()
}

// SaveSnapshot upserts the final tally of an interaction.
func (r *Repository) SaveSnapshot(ctx context.Context, s *models.TallySnapshot) error {
	const query = `INSERT INTO interaction_results (interaction_id, webinar_id, tally, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (interaction_id) DO UPDATE SET tally = EXCLUDED.tally, recorded_at = EXCLUDED.recorded_at`
	_, err := r.pool.Exec(ctx, query, s.InteractionID, s.WebinarID, []byte(s.Tally), s.RecordedAt)
	return err
}

// GetSnapshot returns the stored final tally.
func (r *Repository) GetSnapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error) {
	var s models.TallySnapshot
	var tally []byte
	err := r.pool.QueryRow(ctx,
		`SELECT interaction_id, webinar_id, tally, recorded_at FROM interaction_results WHERE interaction_id = $1`,
		interactionID).Scan(&s.InteractionID, &s.WebinarID, &tally, &s.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Tally = tally
	return &s, nil
}
