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

type SOSHandler struct {
	sosService   services.SOSService
	mediaService services.MediaService
}

func NewSOSHandler(sosService services.SOSService, mediaService services.MediaService) *SOSHandler {
	return &SOSHandler{
		sosService:   sosService,
		mediaService: mediaService,
	}
}

// StartSOS triggers the SOS countdown. While a countdown is already
// running the same endpoint cancels it; while an event is active it
// returns the active event unchanged.
func (h *SOSHandler) StartSOS(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.StartSOSRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	event, err := h.sosService.StartSOS(c.Request.Context(), userID, &request)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_START_FAILED", "Failed to start SOS: "+err.Error())
		return
	}

	switch event.State {
	case models.SOSStateCancelled:
		// Repeat tap during the countdown cancels it
		utils.SuccessResponse(c, "SOS countdown cancelled", event)
	case models.SOSStateActive:
		utils.SuccessResponse(c, "SOS already active", event)
	default:
		utils.SuccessResponse(c, "SOS countdown started", event)
	}
}

// CancelSOS aborts the countdown before it elapses
func (h *SOSHandler) CancelSOS(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.sosService.CancelSOS(c.Request.Context(), userID); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_CANCEL_FAILED", "Failed to cancel SOS: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "SOS cancelled", nil)
}

// ResolveSOS marks an active emergency as safe
func (h *SOSHandler) ResolveSOS(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.sosService.ResolveSOS(c.Request.Context(), userID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Active SOS event")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_RESOLVE_FAILED", "Failed to resolve SOS: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "SOS resolved", nil)
}

// GetLiveEvent returns the countdown or active event, if any
func (h *SOSHandler) GetLiveEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	event, err := h.sosService.LiveEvent(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Live SOS event")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_FETCH_FAILED", "Failed to get live SOS event: "+err.Error())
		return
	}

	if event == nil {
		utils.NotFoundResponse(c, "Live SOS event")
		return
	}

	utils.SuccessResponse(c, "Live SOS event retrieved", event)
}

// GetHistory returns the user's past SOS events
func (h *SOSHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	events, total, err := h.sosService.History(c.Request.Context(), userID, params)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_HISTORY_FAILED", "Failed to get SOS history: "+err.Error())
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	response := map[string]interface{}{
		"events": events,
	}

	utils.SuccessResponseWithMeta(c, "SOS history retrieved", response, meta)
}

// AttachEvidence uploads audio/photo/video captured during an SOS
func (h *SOSHandler) AttachEvidence(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID")
		return
	}

	mediaType := c.PostForm("media_type")
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "File is required")
		return
	}
	defer file.Close()

	attachment, err := h.mediaService.AttachEvidence(
		c.Request.Context(),
		userID,
		eventID,
		mediaType,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPermissionDenied):
			utils.ForbiddenResponse(c)
		case errors.Is(err, services.ErrNotFound):
			utils.NotFoundResponse(c, "SOS event")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "EVIDENCE_UPLOAD_FAILED", "Failed to attach evidence: "+err.Error())
		}
		return
	}

	utils.CreatedResponse(c, "Evidence attached", attachment)
}

// GetEvidenceURL returns a time-limited link to an uploaded attachment
func (h *SOSHandler) GetEvidenceURL(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID")
		return
	}

	key := c.Query("key")
	if key == "" {
		utils.BadRequestResponse(c, "key is required")
		return
	}

	url, err := h.mediaService.EvidenceURL(c.Request.Context(), userID, eventID, key)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Evidence")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "EVIDENCE_URL_FAILED", "Failed to generate evidence link: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Evidence link generated", map[string]string{"url": url})
}

// currentUserID extracts the authenticated user from the request context,
// writing the error response itself when it is missing.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}

	return userObjectID, true
}
