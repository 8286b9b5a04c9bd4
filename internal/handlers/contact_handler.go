package handlers

import (
	"errors"
	"net/http"

	"safecircle/internal/services"
	"safecircle/internal/utils"
	"safecircle/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContactHandler struct {
	contactService services.ContactService
}

func NewContactHandler(contactService services.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

// AddContact creates a trusted contact
func (h *ContactHandler) AddContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request validators.ContactCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	contact, err := h.contactService.AddContact(c.Request.Context(), userID, &request)
	if err != nil {
		var valErrs validators.ValidationErrors
		if errors.As(err, &valErrs) {
			details := make(map[string]string, len(valErrs))
			for _, ve := range valErrs {
				details[ve.Field] = ve.Message
			}
			utils.ErrorResponseWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Contact validation failed", details)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_CREATE_FAILED", "Failed to add contact: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Contact added", contact)
}

// GetContact retrieves one contact owned by the caller
func (h *ContactHandler) GetContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contactID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid contact ID")
		return
	}

	contact, err := h.contactService.GetContact(c.Request.Context(), userID, contactID)
	if err != nil {
		if errors.Is(err, services.ErrPermissionDenied) {
			utils.ForbiddenResponse(c)
			return
		}
		utils.NotFoundResponse(c, "Contact")
		return
	}

	utils.SuccessResponse(c, "Contact retrieved", contact)
}

// UpdateContact updates contact fields
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contactID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid contact ID")
		return
	}

	var request validators.ContactUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	contact, err := h.contactService.UpdateContact(c.Request.Context(), userID, contactID, &request)
	if err != nil {
		var valErrs validators.ValidationErrors
		switch {
		case errors.As(err, &valErrs):
			details := make(map[string]string, len(valErrs))
			for _, ve := range valErrs {
				details[ve.Field] = ve.Message
			}
			utils.ErrorResponseWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Contact validation failed", details)
		case errors.Is(err, services.ErrPermissionDenied):
			utils.ForbiddenResponse(c)
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_UPDATE_FAILED", "Failed to update contact: "+err.Error())
		}
		return
	}

	utils.SuccessResponse(c, "Contact updated", contact)
}

// DeleteContact removes a contact from the directory
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contactID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid contact ID")
		return
	}

	if err := h.contactService.DeleteContact(c.Request.Context(), userID, contactID); err != nil {
		if errors.Is(err, services.ErrPermissionDenied) {
			utils.ForbiddenResponse(c)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_DELETE_FAILED", "Failed to delete contact: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Contact deleted", nil)
}

// ListContacts returns all of the caller's contacts
func (h *ContactHandler) ListContacts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contacts, err := h.contactService.ListContacts(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_LIST_FAILED", "Failed to list contacts: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Contacts retrieved", contacts)
}

// ListEmergencyContacts returns only the contacts flagged for SOS alerts
func (h *ContactHandler) ListEmergencyContacts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contacts, err := h.contactService.ListEmergencyContacts(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "CONTACT_LIST_FAILED", "Failed to list emergency contacts: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Emergency contacts retrieved", contacts)
}
