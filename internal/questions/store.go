// Package questions is the webinar Q&A queue.
package questions

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Store persists questions and their upvotes. At most one upvote per participant per
// question and at most one highlighted question per webinar.
type Store interface {
	Create(ctx context.Context, q *models.Question) error
	Get(ctx context.Context, id uuid.UUID) (*models.Question, error)
	// List returns a webinar's questions in display order.
	List(ctx context.Context, webinarID uuid.UUID) ([]models.Question, error)
	// Upvote records the participant's vote; added is false if it already existed.
	Upvote(ctx context.Context, questionID, participantID uuid.UUID) (q *models.Question, added bool, err error)
	// SetStatus moves a question to answered or hidden, clearing its highlight.
	SetStatus(ctx context.Context, id uuid.UUID, status models.QuestionStatus) (*models.Question, error)
	// Highlight marks id highlighted and returns the question whose highlight was cleared, if any.
	Highlight(ctx context.Context, id uuid.UUID) (q, cleared *models.Question, err error)
}
