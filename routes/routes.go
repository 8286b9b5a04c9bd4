package routes

import (
	"safecircle/internal/handlers"
	"safecircle/internal/middleware"
	"safecircle/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers wired into the router.
type Handlers struct {
	SOS      *handlers.SOSHandler
	Sharing  *handlers.SharingHandler
	Contacts *handlers.ContactHandler
	Calls    *handlers.CallHandler
	Position *handlers.PositionHandler
	WS       *websocket.Handler
}

// Setup registers all API routes on the router group. The rate limiter
// runs after auth so authenticated traffic is keyed per user; the public
// share-link view gets it keyed per IP. Twilio webhooks are never limited.
func Setup(r *gin.RouterGroup, h *Handlers, jwtSecret string, rateLimit gin.HandlerFunc) {
	// Public webhook routes (no auth required)
	webhooks := r.Group("/webhooks/twilio")
	{
		webhooks.POST("/call-status", h.Calls.HandleCallStatusWebhook)
	}

	// Public share-link view
	r.GET("/shared/:token", rateLimit, h.Sharing.ViewSharedLocation)

	auth := middleware.AuthRequired(jwtSecret)

	// SOS state machine
	sos := r.Group("/sos")
	sos.Use(auth, rateLimit)
	{
		sos.POST("/", h.SOS.StartSOS)
		sos.POST("/cancel", h.SOS.CancelSOS)
		sos.POST("/resolve", h.SOS.ResolveSOS)
		sos.GET("/live", h.SOS.GetLiveEvent)
		sos.GET("/history", h.SOS.GetHistory)
		sos.POST("/:id/evidence", h.SOS.AttachEvidence)
		sos.GET("/:id/evidence", h.SOS.GetEvidenceURL)
	}

	// Location sharing sessions
	sessions := r.Group("/sessions")
	sessions.Use(auth, rateLimit)
	{
		sessions.POST("/", h.Sharing.StartSession)
		sessions.POST("/recover", h.Sharing.RecoverSessions)
		sessions.GET("/history", h.Sharing.GetHistory)
		sessions.GET("/:id", h.Sharing.GetSession)
		sessions.PUT("/:id/stop", h.Sharing.StopSession)
		sessions.POST("/:id/refresh", h.Sharing.RefreshPosition)
	}

	// Contact directory
	contacts := r.Group("/contacts")
	contacts.Use(auth, rateLimit)
	{
		contacts.POST("/", h.Contacts.AddContact)
		contacts.GET("/", h.Contacts.ListContacts)
		contacts.GET("/emergency", h.Contacts.ListEmergencyContacts)
		contacts.GET("/:id", h.Contacts.GetContact)
		contacts.PUT("/:id", h.Contacts.UpdateContact)
		contacts.DELETE("/:id", h.Contacts.DeleteContact)
	}

	// Emergency call log
	calls := r.Group("/calls")
	calls.Use(auth, rateLimit)
	{
		calls.GET("/history", h.Calls.GetCallHistory)
	}

	// Device position ingestion
	positions := r.Group("/positions")
	positions.Use(auth, rateLimit)
	{
		positions.POST("/", h.Position.ReportPosition)
	}

	// WebSocket state stream
	r.GET("/ws", auth, rateLimit, h.WS.HandleWebSocket)
}
