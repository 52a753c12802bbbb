package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/responses"
)

// Host is the host control API. Every read has full visibility.
type Host struct {
	e *Engine
}

// RegisterWebinar creates the live-session record of a webinar owned by hostID.
func (h *Host) RegisterWebinar(ctx context.Context, hostID uuid.UUID, id uuid.UUID, allowLate bool) (*models.Webinar, error) {
	w := &models.Webinar{ID: id, HostID: hostID, AllowLateResponses: allowLate}
	if err := h.e.c.Webinars.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (h *Host) StartWebinar(ctx context.Context, webinarID uuid.UUID) (*models.Webinar, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.Webinar, error) {
		return h.e.c.Interactions.StartWebinar(ctx, webinarID)
	})
}

// EndWebinar ends the webinar and whatever interaction is still active, then closes
// every open presence window.
func (h *Host) EndWebinar(ctx context.Context, webinarID uuid.UUID) (*models.Webinar, error) {
	var ended *models.Interaction
	w, err := call(ctx, h.e, func(ctx context.Context) (*models.Webinar, error) {
		w, e, err := h.e.c.Interactions.EndWebinar(ctx, webinarID)
		if e != nil {
			ended = e
		}
		return w, err
	})
	if ended != nil {
		h.e.afterEnd(ctx, ended)
	}
	if err == nil && w.Status == models.WebinarEnded {
		h.e.c.Presence.Forget(webinarID)
	}
	return w, err
}

// CreateInteraction runs once: a retry after an unacknowledged commit would add a second draft.
func (h *Host) CreateInteraction(ctx context.Context, p interactions.CreateParams) (*models.Interaction, error) {
	return h.e.c.Interactions.Create(ctx, p)
}

func (h *Host) ListInteractions(ctx context.Context, webinarID uuid.UUID) ([]*models.Interaction, error) {
	return call(ctx, h.e, func(ctx context.Context) ([]*models.Interaction, error) {
		return h.e.c.Interactions.List(ctx, webinarID)
	})
}

func (h *Host) GetInteraction(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.Interaction, error) {
		return h.e.c.Interactions.Get(ctx, id)
	})
}

// ActivateInteraction activates a draft; the previously active interaction is ended.
func (h *Host) ActivateInteraction(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	var ended *models.Interaction
	activated, err := call(ctx, h.e, func(ctx context.Context) (*models.Interaction, error) {
		a, e, err := h.e.c.Interactions.Activate(ctx, id)
		if e != nil {
			ended = e
		}
		return a, err
	})
	if ended != nil {
		h.e.afterEnd(ctx, ended)
	}
	return activated, err
}

// EndInteraction is idempotent; the final tally is published only on the first call.
func (h *Host) EndInteraction(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	var changed bool
	i, err := call(ctx, h.e, func(ctx context.Context) (*models.Interaction, error) {
		i, c, err := h.e.c.Interactions.End(ctx, id)
		changed = changed || c
		return i, err
	})
	if err == nil && changed {
		h.e.afterEnd(ctx, i)
	}
	return i, err
}

// DeleteInteraction runs once; a retried delete of a committed one would report not found.
func (h *Host) DeleteInteraction(ctx context.Context, id uuid.UUID) error {
	return h.e.c.Interactions.Delete(ctx, id)
}

func (h *Host) Tally(ctx context.Context, interactionID uuid.UUID) (*responses.Tally, error) {
	return call(ctx, h.e, func(ctx context.Context) (*responses.Tally, error) {
		return h.e.c.Responses.Tally(ctx, interactionID)
	})
}

// TallySnapshot returns the stored final tally of an ended interaction.
func (h *Host) TallySnapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.TallySnapshot, error) {
		return h.e.c.Responses.Snapshot(ctx, interactionID)
	})
}

func (h *Host) ListQuestions(ctx context.Context, webinarID uuid.UUID) ([]models.Question, error) {
	return call(ctx, h.e, func(ctx context.Context) ([]models.Question, error) {
		return h.e.c.Questions.List(ctx, webinarID)
	})
}

func (h *Host) UpvoteQuestion(ctx context.Context, questionID, hostID uuid.UUID) (*models.Question, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.Question, error) {
		return h.e.c.Questions.Upvote(ctx, questionID, hostID)
	})
}

func (h *Host) MarkAnswered(ctx context.Context, questionID uuid.UUID) (*models.Question, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.Question, error) {
		return h.e.c.Questions.MarkAnswered(ctx, questionID)
	})
}

func (h *Host) Highlight(ctx context.Context, questionID uuid.UUID) (*models.Question, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.Question, error) {
		return h.e.c.Questions.Highlight(ctx, questionID)
	})
}

func (h *Host) Hide(ctx context.Context, questionID uuid.UUID) (*models.Question, error) {
	return call(ctx, h.e, func(ctx context.Context) (*models.Question, error) {
		return h.e.c.Questions.Hide(ctx, questionID)
	})
}

func (h *Host) ReactionCounts(ctx context.Context, webinarID uuid.UUID) (models.ReactionCounts, error) {
	return call(ctx, h.e, func(ctx context.Context) (models.ReactionCounts, error) {
		return h.e.c.Reactions.Counts(ctx, webinarID)
	})
}

func (h *Host) ResetReactions(ctx context.Context, webinarID uuid.UUID) error {
	return exec(ctx, h.e, func(ctx context.Context) error {
		return h.e.c.Reactions.Reset(ctx, webinarID)
	})
}

// PresenceInfo is the host's view of who is connected and who has attended.
type PresenceInfo struct {
	WebinarID          uuid.UUID                   `json:"webinar_id"`
	Count              int                         `json:"count"`
	Peak               int                         `json:"peak"`
	UniqueParticipants int                         `json:"unique_participants"`
	Sessions           []models.ParticipantSession `json:"sessions"`
}

// Presence combines the live counts with the session history when one is kept.
// Peak covers the live session only and resets once the webinar ends.
func (h *Host) Presence(ctx context.Context, webinarID uuid.UUID) (*PresenceInfo, error) {
	info := &PresenceInfo{
		WebinarID: webinarID,
		Count:     h.e.c.Presence.Count(webinarID),
		Peak:      h.e.c.Presence.Peak(webinarID),
		Sessions:  []models.ParticipantSession{},
	}
	if h.e.c.Sessions == nil {
		return info, nil
	}
	err := exec(ctx, h.e, func(ctx context.Context) error {
		sessions, err := h.e.c.Sessions.List(ctx, webinarID)
		if err != nil {
			return err
		}
		unique, err := h.e.c.Sessions.DistinctParticipants(ctx, webinarID)
		if err != nil {
			return err
		}
		if sessions != nil {
			info.Sessions = sessions
		}
		info.UniqueParticipants = unique
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
