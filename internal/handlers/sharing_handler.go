package handlers

import (
	"errors"
	"net/http"

	"safecircle/internal/models"
	"safecircle/internal/services"
	"safecircle/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SharingHandler struct {
	sharingService services.SharingService
}

func NewSharingHandler(sharingService services.SharingService) *SharingHandler {
	return &SharingHandler{
		sharingService: sharingService,
	}
}

// StartSession begins a live-location share with the selected contacts
func (h *SharingHandler) StartSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.StartShareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	session, err := h.sharingService.StartSession(c.Request.Context(), userID, request.RecipientIDs, request.Duration)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoRecipients):
			utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeNoRecipients, "At least one recipient is required")
		case errors.Is(err, services.ErrPositionUnavailable):
			utils.ErrorResponse(c, http.StatusServiceUnavailable, utils.CodePositionUnavailable, "Could not obtain a position fix")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "SHARE_START_FAILED", "Failed to start location share: "+err.Error())
		}
		return
	}

	utils.CreatedResponse(c, "Location share started", session)
}

// StopSession ends a share. Stopping an already stopped session is a
// no-op and still succeeds.
func (h *SharingHandler) StopSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid session ID")
		return
	}

	if !h.ownsSession(c, userID, sessionID) {
		return
	}

	if err := h.sharingService.StopSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Share session")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SHARE_STOP_FAILED", "Failed to stop location share: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Location share stopped", nil)
}

// RefreshPosition re-reads the device position for the session
func (h *SharingHandler) RefreshPosition(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid session ID")
		return
	}

	if !h.ownsSession(c, userID, sessionID) {
		return
	}

	session, err := h.sharingService.RefreshPosition(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Share session")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SHARE_REFRESH_FAILED", "Failed to refresh position: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Position refreshed", session)
}

// RecoverSessions is the app-resume path: expires overdue sessions and
// returns the ones still live.
func (h *SharingHandler) RecoverSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessions, err := h.sharingService.RecoverActiveSessions(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SHARE_RECOVER_FAILED", "Failed to recover sessions: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Active sessions recovered", sessions)
}

// GetSession returns one session owned by the caller
func (h *SharingHandler) GetSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid session ID")
		return
	}

	session, err := h.sharingService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		utils.NotFoundResponse(c, "Share session")
		return
	}

	if session.UserID != userID {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Share session retrieved", session)
}

// ViewSharedLocation is the public share-link view, keyed by token
func (h *SharingHandler) ViewSharedLocation(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		utils.BadRequestResponse(c, "Share token is required")
		return
	}

	session, err := h.sharingService.GetSessionByToken(c.Request.Context(), token)
	if err != nil {
		utils.NotFoundResponse(c, "Share session")
		return
	}

	view := map[string]interface{}{
		"session_id":     session.ID.Hex(),
		"is_active":      session.IsActive,
		"position":       session.LastKnownPosition,
		"position_stale": session.PositionStale,
		"expires_at":     session.ExpiresAt,
	}

	utils.SuccessResponse(c, "Shared location retrieved", view)
}

// GetHistory returns the user's past share sessions
func (h *SharingHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	sessions, total, err := h.sharingService.History(c.Request.Context(), userID, params)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SHARE_HISTORY_FAILED", "Failed to get share history: "+err.Error())
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	response := map[string]interface{}{
		"sessions": sessions,
	}

	utils.SuccessResponseWithMeta(c, "Share history retrieved", response, meta)
}

// ownsSession rejects requests against sessions the caller does not own,
// writing the error response itself.
func (h *SharingHandler) ownsSession(c *gin.Context, userID, sessionID primitive.ObjectID) bool {
	session, err := h.sharingService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		utils.NotFoundResponse(c, "Share session")
		return false
	}

	if session.UserID != userID {
		utils.ForbiddenResponse(c)
		return false
	}

	return true
}
