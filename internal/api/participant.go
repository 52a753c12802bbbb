package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/pkg/response"
)

// SubmitResponse handles POST /interactions/:id/responses with an answer payload.
func (h *Handler) SubmitResponse(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	participantID, ok := currentUser(c)
	if !ok {
		return
	}
	var answer models.Answer
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&answer); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	r, err := h.engine.Participant.SubmitResponse(c.Request.Context(), id, participantID, answer)
	if err != nil {
		h.fail(c, "submit response", err)
		return
	}
	response.OK(c, r)
}

// VisibleTally handles GET /interactions/:id/tally.
func (h *Handler) VisibleTally(c *gin.Context) {
	id, ok := pathID(c, "interaction")
	if !ok {
		return
	}
	t, err := h.engine.Participant.VisibleTally(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "visible tally", err)
		return
	}
	response.OK(c, t)
}

// ActiveInteraction handles GET /webinars/:id/active. Data is null when nothing is active.
func (h *Handler) ActiveInteraction(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	i, err := h.engine.Participant.ActiveInteraction(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "active interaction", err)
		return
	}
	response.OK(c, i)
}

// AskQuestionRequest is the body for POST /webinars/:id/questions.
type AskQuestionRequest struct {
	Text      string `json:"text"`
	Anonymous bool   `json:"anonymous"`
}

// AskQuestion handles POST /webinars/:id/questions.
func (h *Handler) AskQuestion(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	participantID, ok := currentUser(c)
	if !ok {
		return
	}
	var req AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.engine.Participant.AskQuestion(c.Request.Context(), webinarID, participantID, req.Text, req.Anonymous)
	if err != nil {
		h.fail(c, "ask question", err)
		return
	}
	response.Created(c, q)
}

// ListQuestions handles GET /webinars/:id/questions. Hidden questions are left out.
func (h *Handler) ListQuestions(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	list, err := h.engine.Participant.ListQuestions(c.Request.Context(), webinarID)
	if err != nil {
		h.fail(c, "list questions", err)
		return
	}
	response.OK(c, list)
}

// UpvoteQuestion handles POST /questions/:id/upvote. Repeat upvotes are no-ops.
func (h *Handler) UpvoteQuestion(c *gin.Context) {
	id, ok := pathID(c, "question")
	if !ok {
		return
	}
	participantID, ok := currentUser(c)
	if !ok {
		return
	}
	q, err := h.engine.Participant.UpvoteQuestion(c.Request.Context(), id, participantID)
	if err != nil {
		h.fail(c, "upvote question", err)
		return
	}
	response.OK(c, q)
}

// SendReactionRequest is the body for POST /webinars/:id/reactions.
type SendReactionRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// SendReaction handles POST /webinars/:id/reactions.
func (h *Handler) SendReaction(c *gin.Context) {
	webinarID, ok := pathID(c, "webinar")
	if !ok {
		return
	}
	participantID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SendReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.engine.Participant.SendReaction(c.Request.Context(), webinarID, participantID, req.Kind); err != nil {
		h.fail(c, "send reaction", err)
		return
	}
	response.NoContent(c)
}
