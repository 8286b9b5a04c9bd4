package handlers

import (
	"net/http"

	"safecircle/internal/models"
	"safecircle/internal/services"
	"safecircle/internal/utils"

	"github.com/gin-gonic/gin"
)

// PositionHandler ingests device-reported position fixes. The SOS
// controller and share sessions read the latest fix from here.
type PositionHandler struct {
	positioning services.Positioning
}

func NewPositionHandler(positioning services.Positioning) *PositionHandler {
	return &PositionHandler{
		positioning: positioning,
	}
}

// ReportPosition stores the device's latest position fix
func (h *PositionHandler) ReportPosition(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var position models.Position
	if err := c.ShouldBindJSON(&position); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if !utils.IsValidCoordinates(position.Latitude, position.Longitude) {
		utils.BadRequestResponse(c, "Invalid coordinates")
		return
	}

	if err := h.positioning.ReportPosition(c.Request.Context(), userID, position); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "POSITION_REPORT_FAILED", "Failed to report position: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Position reported", nil)
}
