package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/live-engine/internal/auth"
	"github.com/aura-webinar/live-engine/internal/middleware"
	"github.com/aura-webinar/live-engine/pkg/response"
)

// Routes registers the health check, the socket endpoint and both APIs. ws may be nil.
func Routes(router gin.IRouter, h *Handler, jwtService *auth.JWTService, ws gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// WebSocket (token in query; no Authorization header required)
	if ws != nil {
		router.GET("/ws", ws)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))

	host := api.Group("/host")
	host.Use(middleware.RequireRole(auth.HostRoles...))
	{
		host.POST("/webinars", h.RegisterWebinar)
		host.POST("/webinars/:id/start", h.StartWebinar)
		host.POST("/webinars/:id/end", h.EndWebinar)
		host.POST("/webinars/:id/interactions", h.CreateInteraction)
		host.GET("/webinars/:id/interactions", h.ListInteractions)
		host.GET("/webinars/:id/questions", h.HostListQuestions)
		host.GET("/webinars/:id/reactions", h.ReactionCounts)
		host.POST("/webinars/:id/reactions/reset", h.ResetReactions)
		host.GET("/webinars/:id/presence", h.Presence)

		host.GET("/interactions/:id", h.GetInteraction)
		host.POST("/interactions/:id/activate", h.ActivateInteraction)
		host.POST("/interactions/:id/end", h.EndInteraction)
		host.DELETE("/interactions/:id", h.DeleteInteraction)
		host.GET("/interactions/:id/tally", h.Tally)
		host.GET("/interactions/:id/snapshot", h.TallySnapshot)

		host.POST("/questions/:id/answer", h.MarkAnswered())
		host.POST("/questions/:id/highlight", h.Highlight())
		host.POST("/questions/:id/hide", h.Hide())
		host.POST("/questions/:id/upvote", h.HostUpvoteQuestion)
	}

	api.POST("/interactions/:id/responses", h.SubmitResponse)
	api.GET("/interactions/:id/tally", h.VisibleTally)
	api.GET("/webinars/:id/active", h.ActiveInteraction)
	api.POST("/webinars/:id/questions", h.AskQuestion)
	api.GET("/webinars/:id/questions", h.ListQuestions)
	api.POST("/questions/:id/upvote", h.UpvoteQuestion)
	api.POST("/webinars/:id/reactions", h.SendReaction)
}
