// Package api exposes the host control and participant client services over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/engine"
	"github.com/aura-webinar/live-engine/internal/middleware"
	"github.com/aura-webinar/live-engine/pkg/response"
)

// Handler serves both APIs over one engine.
type Handler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewHandler creates an API handler.
func NewHandler(e *engine.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: e, logger: logger}
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return uuid.Nil, false
	}
	return id, true
}

// fail writes err and logs anything that is not a policy error.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	response.Error(c, err)
	if c.Writer.Status() >= 500 {
		h.logger.Error(op+" failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
}
