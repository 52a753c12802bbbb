package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/responses"
)

// EventSendReaction is the inbound socket event for the reaction fast path.
const EventSendReaction = "send_reaction"

// Participant is the participant client API. Reads are filtered to what the audience may see.
type Participant struct {
	e *Engine
}

// SubmitResponse retries failed reads; a failed insert is returned as it is.
func (p *Participant) SubmitResponse(ctx context.Context, interactionID, participantID uuid.UUID, answer models.Answer) (*models.Response, error) {
	return call(ctx, p.e, func(ctx context.Context) (*models.Response, error) {
		return p.e.c.Responses.Submit(ctx, interactionID, participantID, answer)
	})
}

// VisibleTally returns the tally once results are visible to participants.
func (p *Participant) VisibleTally(ctx context.Context, interactionID uuid.UUID) (*responses.Tally, error) {
	return call(ctx, p.e, func(ctx context.Context) (*responses.Tally, error) {
		return p.e.c.Responses.ParticipantTally(ctx, interactionID)
	})
}

// ActiveInteraction returns the webinar's active interaction without quiz answers, or nil.
func (p *Participant) ActiveInteraction(ctx context.Context, webinarID uuid.UUID) (*models.Interaction, error) {
	i, err := call(ctx, p.e, func(ctx context.Context) (*models.Interaction, error) {
		return p.e.c.Interactions.Active(ctx, webinarID)
	})
	if err != nil || i == nil {
		return nil, err
	}
	return i.ForParticipant(), nil
}

// AskQuestion posts a question; anonymous questions carry no author. It runs once so
// an unacknowledged commit does not post the question twice.
func (p *Participant) AskQuestion(ctx context.Context, webinarID, participantID uuid.UUID, text string, anonymous bool) (*models.Question, error) {
	var author *uuid.UUID
	if !anonymous {
		author = &participantID
	}
	return p.e.c.Questions.Ask(ctx, webinarID, author, text)
}

func (p *Participant) ListQuestions(ctx context.Context, webinarID uuid.UUID) ([]models.Question, error) {
	return call(ctx, p.e, func(ctx context.Context) ([]models.Question, error) {
		return p.e.c.Questions.ListVisible(ctx, webinarID)
	})
}

func (p *Participant) UpvoteQuestion(ctx context.Context, questionID, participantID uuid.UUID) (*models.Question, error) {
	q, err := call(ctx, p.e, func(ctx context.Context) (*models.Question, error) {
		return p.e.c.Questions.Upvote(ctx, questionID, participantID)
	})
	if err != nil {
		return nil, err
	}
	v := q.ForParticipant()
	return &v, nil
}

// SendReaction counts a reaction on a live webinar. Reactions are not retried: a lost
// pulse is acceptable, a doubled one is not.
func (p *Participant) SendReaction(ctx context.Context, webinarID, participantID uuid.UUID, kind string) error {
	w, err := p.e.c.Webinars.Get(ctx, webinarID)
	if err != nil {
		return err
	}
	if w.Status != models.WebinarLive {
		return fmt.Errorf("%w: reactions are open while the webinar is live, it is %s", models.ErrInvalidState, w.Status)
	}
	return p.e.c.Reactions.React(ctx, webinarID, participantID, kind)
}

type reactionMessage struct {
	Kind string `json:"kind"`
}

// HandleInbound processes events sent by a socket client.
func (e *Engine) HandleInbound(ctx context.Context, s *realtime.Subscriber, event string, data json.RawMessage) error {
	switch event {
	case EventSendReaction:
		var msg reactionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("%w: invalid reaction payload", models.ErrValidation)
		}
		return e.Participant.SendReaction(ctx, s.WebinarID, s.ParticipantID, msg.Kind)
	default:
		return fmt.Errorf("%w: unknown event %q", models.ErrValidation, event)
	}
}
