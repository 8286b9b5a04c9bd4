package handlers

import (
	"net/http"

	"safecircle/internal/services"
	"safecircle/internal/utils"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	callService services.CallService
}

func NewCallHandler(callService services.CallService) *CallHandler {
	return &CallHandler{
		callService: callService,
	}
}

// GetCallHistory retrieves the user's emergency call history
func (h *CallHandler) GetCallHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	calls, total, err := h.callService.GetCallHistory(c.Request.Context(), userID, params)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "CALL_HISTORY_FAILED", "Failed to get call history: "+err.Error())
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	response := map[string]interface{}{
		"calls": calls,
	}

	utils.SuccessResponseWithMeta(c, "Call history retrieved", response, meta)
}

// HandleCallStatusWebhook handles Twilio call status webhooks
func (h *CallHandler) HandleCallStatusWebhook(c *gin.Context) {
	var webhookData map[string]interface{}
	if err := c.ShouldBind(&webhookData); err != nil {
		utils.BadRequestResponse(c, "Invalid webhook data")
		return
	}

	if err := h.callService.HandleCallStatusWebhook(c.Request.Context(), webhookData); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "WEBHOOK_FAILED", "Failed to handle webhook: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
