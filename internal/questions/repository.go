package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const questionColumns = `id, webinar_id, author_id, text, upvotes, status, highlighted, created_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	var status string
	err := row.Scan(&q.ID, &q.WebinarID, &q.AuthorID, &q.Text, &q.Upvotes, &status, &q.Highlighted, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.Status = models.QuestionStatus(status)
	return &q, nil
}

// Create inserts a new pending question.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (id, webinar_id, author_id, text, upvotes, status, highlighted)
		VALUES (gen_random_uuid(), $1, $2, $3, 0, 'pending', FALSE)
		RETURNING id, created_at`
	q.Status = models.QuestionPending
	q.Upvotes = 0
	q.Highlighted = false
	return r.pool.QueryRow(ctx, query, q.WebinarID, q.AuthorID, q.Text).Scan(&q.ID, &q.CreatedAt)
}

// Get returns a question by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// List returns questions by upvotes, oldest first on ties.
func (r *Repository) List(ctx context.Context, webinarID uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE webinar_id = $1
		ORDER BY upvotes DESC, created_at ASC, id ASC`, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, rows.Err()
}

// Upvote records one vote per participant. The vote row and the counter change together.
func (r *Repository) Upvote(ctx context.Context, questionID, participantID uuid.UUID) (q *models.Question, added bool, err error) {
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO question_upvotes (question_id, participant_id)
			SELECT id, $2 FROM questions WHERE id = $1
			ON CONFLICT (question_id, participant_id) DO NOTHING`, questionID, participantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			q, err = scanQuestion(tx.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, questionID))
			return err
		}
		added = true
		q, err = scanQuestion(tx.QueryRow(ctx,
			`UPDATE questions SET upvotes = upvotes + 1 WHERE id = $1 RETURNING `+questionColumns, questionID))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return q, added, nil
}

// SetStatus updates the moderation status and drops the highlight.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.QuestionStatus) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`UPDATE questions SET status = $2, highlighted = FALSE WHERE id = $1 RETURNING `+questionColumns,
		id, string(status)))
}

// Highlight moves the webinar's highlight to id. The webinar row lock serialises
// concurrent highlights; the partial unique index on highlighted rows backs it up.
func (r *Repository) Highlight(ctx context.Context, id uuid.UUID) (q, cleared *models.Question, err error) {
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var webinarID uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT webinar_id FROM questions WHERE id = $1`, id).Scan(&webinarID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `SELECT id FROM webinars WHERE id = $1 FOR UPDATE`, webinarID); err != nil {
			return err
		}
		prev, err := scanQuestion(tx.QueryRow(ctx,
			`UPDATE questions SET highlighted = FALSE
			 WHERE webinar_id = $1 AND highlighted AND id <> $2 RETURNING `+questionColumns, webinarID, id))
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return err
		default:
			cleared = prev
		}
		q, err = scanQuestion(tx.QueryRow(ctx,
			`UPDATE questions SET highlighted = TRUE WHERE id = $1 RETURNING `+questionColumns, id))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return q, cleared, nil
}
