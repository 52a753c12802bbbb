package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/pkg/response"
)

// RegisterWebinarRequest is the body for POST /host/webinars.
type RegisterWebinarRequest struct {
	ID                 *uuid.UUID `json:"id,omitempty"`
	AllowLateResponses bool       `json:"allow_late_responses"`
}

// RegisterWebinar handles POST /host/webinars. The caller becomes the host.
func (h *Handler) RegisterWebinar(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	var req RegisterWebinarRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	id := uuid.Nil
	if req.ID != nil {
		id = *req.ID
	}
	w, err := h.engine.Host.RegisterWebinar(c.Request.Context(), hostID, id, req.AllowLateResponses)
	if err != nil {
		h.fail(c, "register webinar", err)
		return
	}
	response.Created(c, w)
}

// StartWebinar handles POST /host/webinars/:id/start.
func (h *Handler) StartWebinar(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	w, err := h.engine.Host.StartWebinar(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "start webinar", err)
		return
	}
	response.OK(c, w)
}

// EndWebinar handles POST /host/webinars/:id/end.
func (h *Handler) EndWebinar(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	w, err := h.engine.Host.EndWebinar(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "end webinar", err)
		return
	}
	response.OK(c, w)
}

// CreateInteractionRequest is the body for POST /host/webinars/:id/interactions.
type CreateInteractionRequest struct {
	Variant  models.Variant       `json:"variant" binding:"required"`
	Title    string               `json:"title"`
	Prompt   string               `json:"prompt"`
	Options  []models.OptionInput `json:"options"`
	Settings json.RawMessage      `json:"settings"`
}

// CreateInteraction handles POST /host/webinars/:id/interactions. The interaction starts as a draft.
func (h *Handler) CreateInteraction(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	var req CreateInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	i, err := h.engine.Host.CreateInteraction(c.Request.Context(), interactions.CreateParams{
		WebinarID: webinarID,
		Variant:   req.Variant,
		Title:     req.Title,
		Prompt:    req.Prompt,
		Options:   req.Options,
		Settings:  req.Settings,
	})
	if err != nil {
		h.fail(c, "create interaction", err)
		return
	}
	response.Created(c, i)
}

// ListInteractions handles GET /host/webinars/:id/interactions.
func (h *Handler) ListInteractions(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	list, err := h.engine.Host.ListInteractions(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "list interactions", err)
		return
	}
	response.OK(c, list)
}

// GetInteraction handles GET /host/interactions/:id.
func (h *Handler) GetInteraction(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	i, err := h.engine.Host.GetInteraction(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get interaction", err)
		return
	}
	response.OK(c, i)
}

// ActivateInteraction handles POST /host/interactions/:id/activate.
func (h *Handler) ActivateInteraction(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	i, err := h.engine.Host.ActivateInteraction(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "activate interaction", err)
		return
	}
	response.OK(c, i)
}

// EndInteraction handles POST /host/interactions/:id/end.
func (h *Handler) EndInteraction(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	i, err := h.engine.Host.EndInteraction(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "end interaction", err)
		return
	}
	response.OK(c, i)
}

// DeleteInteraction handles DELETE /host/interactions/:id. Only drafts can be deleted.
func (h *Handler) DeleteInteraction(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	if err := h.engine.Host.DeleteInteraction(c.Request.Context(), id); err != nil {
		h.fail(c, "delete interaction", err)
		return
	}
	response.NoContent(c)
}

// Tally handles GET /host/interactions/:id/tally.
func (h *Handler) Tally(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	t, err := h.engine.Host.Tally(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "tally", err)
		return
	}
	response.OK(c, t)
}

// TallySnapshot handles GET /host/interactions/:id/snapshot.
func (h *Handler) TallySnapshot(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	s, err := h.engine.Host.TallySnapshot(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "tally snapshot", err)
		return
	}
	response.OK(c, s)
}

// HostListQuestions handles GET /host/webinars/:id/questions, hidden ones included.
func (h *Handler) HostListQuestions(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	list, err := h.engine.Host.ListQuestions(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "list questions", err)
		return
	}
	response.OK(c, list)
}

// HostUpvoteQuestion handles POST /host/questions/:id/upvote.
func (h *Handler) HostUpvoteQuestion(c *gin.Context) {
	id, ok := pathID(c, "question")
	if !ok {
		return
	}
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	q, err := h.engine.Host.UpvoteQuestion(c.Request.Context(), id, hostID)
	if err != nil {
		h.fail(c, "upvote question", err)
		return
	}
	response.OK(c, q)
}

// moderate wraps the question moderation actions, which share their shape.
func (h *Handler) moderate(op string, fn func(c *gin.Context, id uuid.UUID) (*models.Question, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "question")
		if !ok {
			return
		}
		q, err := fn(c, id)
		if err != nil {
			h.fail(c, op, err)
			return
		}
		response.OK(c, q)
	}
}

// MarkAnswered handles POST /host/questions/:id/answer.
func (h *Handler) MarkAnswered() gin.HandlerFunc {
	return h.moderate("mark answered", func(c *gin.Context, id uuid.UUID) (*models.Question, error) {
		return h.engine.Host.MarkAnswered(c.Request.Context(), id)
	})
}

// Highlight handles POST /host/questions/:id/highlight.
func (h *Handler) Highlight() gin.HandlerFunc {
	return h.moderate("highlight", func(c *gin.Context, id uuid.UUID) (*models.Question, error) {
		return h.engine.Host.Highlight(c.Request.Context(), id)
	})
}

// Hide handles POST /host/questions/:id/hide.
func (h *Handler) Hide() gin.HandlerFunc {
	return h.moderate("hide", func(c *gin.Context, id uuid.UUID) (*models.Question, error) {
		return h.engine.Host.Hide(c.Request.Context(), id)
	})
}

// ReactionCounts handles GET /host/webinars/:id/reactions.
func (h *Handler) ReactionCounts(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	counts, err := h.engine.Host.ReactionCounts(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "reaction counts", err)
		return
	}
	response.OK(c, counts)
}

// ResetReactions handles POST /host/webinars/:id/reactions/reset.
func (h *Handler) ResetReactions(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	if err := h.engine.Host.ResetReactions(c.Request.Context(), webinarID); err != nil {
		h.fail(c, "reset reactions", err)
		return
	}
	response.NoContent(c)
}

// Presence handles GET /host/webinars/:id/presence: live counts, unique attendees and session history.
func (h *Handler) Presence(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	info, err := h.engine.Host.Presence(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "presence", err)
		return
	}
	response.OK(c, info)
}
