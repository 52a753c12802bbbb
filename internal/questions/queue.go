package questions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/webinars"
)

// Queue manages question submission, upvote ordering and host moderation.
type Queue struct {
	store    Store
	webinars webinars.Store
	pub      realtime.Publisher
	logger   *zap.Logger
}

// NewQueue creates a Q&A queue.
func NewQueue(store Store, webinarStore webinars.Store, pub realtime.Publisher, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{store: store, webinars: webinarStore, pub: pub, logger: logger}
}

// Ask adds a pending question. authorID is nil for anonymous questions.
func (q *Queue) Ask(ctx context.Context, webinarID uuid.UUID, authorID *uuid.UUID, text string) (*models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: question text is required", models.ErrValidation)
	}
	if utf8.RuneCountInString(text) > models.MaxQuestionLength {
		return nil, fmt.Errorf("%w: question exceeds %d characters", models.ErrValidation, models.MaxQuestionLength)
	}
	w, err := q.webinars.Get(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	if w.Status == models.WebinarEnded {
		return nil, fmt.Errorf("%w: webinar has ended", models.ErrInvalidState)
	}

	question := &models.Question{WebinarID: webinarID, AuthorID: authorID, Text: text}
	if err := q.store.Create(ctx, question); err != nil {
		return nil, err
	}
	q.publish(realtime.EventQuestionAdded, question)
	return question, nil
}

// Upvote adds the participant's vote. A repeated vote is a no-op.
func (q *Queue) Upvote(ctx context.Context, questionID, participantID uuid.UUID) (*models.Question, error) {
	current, err := q.store.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.QuestionHidden {
		return nil, fmt.Errorf("%w: question is hidden", models.ErrInvalidState)
	}
	question, added, err := q.store.Upvote(ctx, questionID, participantID)
	if err != nil {
		return nil, err
	}
	if added {
		q.publish(realtime.EventQuestionUpdated, question)
	}
	return question, nil
}

// MarkAnswered moves a question to answered.
func (q *Queue) MarkAnswered(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return q.setStatus(ctx, id, models.QuestionAnswered)
}

// Hide removes a question from the participant view.
func (q *Queue) Hide(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return q.setStatus(ctx, id, models.QuestionHidden)
}

func (q *Queue) setStatus(ctx context.Context, id uuid.UUID, status models.QuestionStatus) (*models.Question, error) {
	current, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status && !current.Highlighted {
		return current, nil
	}
	question, err := q.store.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	q.logger.Info("question moderated",
		zap.String("question_id", id.String()),
		zap.String("status", string(status)))
	q.publish(realtime.EventQuestionUpdated, question)
	return question, nil
}

// Highlight makes id the webinar's only highlighted question.
func (q *Queue) Highlight(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	current, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.QuestionHidden {
		return nil, fmt.Errorf("%w: hidden questions cannot be highlighted", models.ErrInvalidState)
	}
	if current.Highlighted {
		return current, nil
	}
	question, cleared, err := q.store.Highlight(ctx, id)
	if err != nil {
		return nil, err
	}
	if cleared != nil {
		q.publish(realtime.EventQuestionUpdated, cleared)
	}
	q.publish(realtime.EventQuestionUpdated, question)
	return question, nil
}

// List returns every question of the webinar in display order, for hosts.
func (q *Queue) List(ctx context.Context, webinarID uuid.UUID) ([]models.Question, error) {
	return q.store.List(ctx, webinarID)
}

// ListVisible returns the participant view: hidden questions are left out and
// authors are not disclosed.
func (q *Queue) ListVisible(ctx context.Context, webinarID uuid.UUID) ([]models.Question, error) {
	list, err := q.store.List(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Question, 0, len(list))
	for _, question := range list {
		if question.Status != models.QuestionHidden {
			visible = append(visible, question.ForParticipant())
		}
	}
	return visible, nil
}

func (q *Queue) publish(event string, question *models.Question) {
	q.pub.Publish(question.WebinarID, realtime.Event{
		Name:     event,
		Audience: realtime.AudienceHosts,
		Data:     realtime.QuestionPayload{Question: *question},
	})
	q.pub.Publish(question.WebinarID, realtime.Event{
		Name:     event,
		Audience: realtime.AudienceParticipants,
		Data:     realtime.QuestionPayload{Question: question.ForParticipant()},
	})
}
