package validators

import (
	"strings"
)

type ContactCreateRequest struct {
	DisplayName  string `json:"display_name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required,phone_number"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship" validate:"omitempty,max=50"`
	IsEmergency  bool   `json:"is_emergency"`
	Priority     int    `json:"priority" validate:"omitempty,min=0,max=10"`
	PushToken    string `json:"push_token" validate:"omitempty,max=512"`
}

type ContactUpdateRequest struct {
	DisplayName  *string `json:"display_name" validate:"omitempty,min=2,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,phone_number"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Relationship *string `json:"relationship" validate:"omitempty,max=50"`
	IsEmergency  *bool   `json:"is_emergency"`
	Priority     *int    `json:"priority" validate:"omitempty,min=0,max=10"`
	PushToken    *string `json:"push_token" validate:"omitempty,max=512"`
}

func ValidateContactCreate(req *ContactCreateRequest) ValidationErrors {
	req.DisplayName = SanitizeInput(req.DisplayName)
	if req.Email != "" {
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}

	return ValidateStruct(req)
}

func ValidateContactUpdate(req *ContactUpdateRequest) ValidationErrors {
	if req.DisplayName != nil {
		cleaned := SanitizeInput(*req.DisplayName)
		req.DisplayName = &cleaned
	}
	if req.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &lowered
	}

	return ValidateStruct(req)
}
