package services

import (
	"context"
	"fmt"

	"safecircle/internal/config"
	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"
	"safecircle/internal/utils"

	"safecircle/pkg/logger"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallService places emergency calls over Twilio and keeps the call
// log. It implements the Telephony collaborator of the SOS controller.
type CallService interface {
	Telephony

	UpdateCallStatus(ctx context.Context, callSID string, status models.CallStatus, duration int) error
	HandleCallStatusWebhook(ctx context.Context, webhookData map[string]interface{}) error
	GetCallHistory(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.CallLog, int64, error)
}

type callService struct {
	twilioClient     *twilio.RestClient
	twilioFromNumber string
	baseURL          string
	enabled          bool
	callRepo         interfaces.CallLogRepository
	logger           *logger.Logger
}

func NewCallService(cfg *config.Config, callRepo interfaces.CallLogRepository, log *logger.Logger) CallService {
	enabled := cfg.SMS != nil && cfg.SMS.Twilio != nil && cfg.SMS.Twilio.AccountSID != ""

	var twilioClient *twilio.RestClient
	var fromNumber string
	if enabled {
		twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.SMS.Twilio.AccountSID,
			Password: cfg.SMS.Twilio.AuthToken,
		})
		fromNumber = cfg.SMS.Twilio.FromNumber
	}

	return &callService{
		twilioClient:     twilioClient,
		twilioFromNumber: fromNumber,
		baseURL:          cfg.App.BaseURL,
		enabled:          enabled,
		callRepo:         callRepo,
		logger:           log,
	}
}

func (s *callService) InitiateEmergencyCall(ctx context.Context, userID primitive.ObjectID, sosEventID primitive.ObjectID, number string) (*models.CallLog, error) {
	call := &models.CallLog{
		UserID:     userID,
		SOSEventID: &sosEventID,
		ToNumber:   number,
		FromNumber: s.twilioFromNumber,
		Status:     models.CallStatusInitiated,
	}

	if !s.enabled {
		// Still logged: the attempt is part of the emergency record.
		call.Status = models.CallStatusUnsupported
		call.Error = ErrUnsupported.Error()
		if err := s.callRepo.Create(ctx, call); err != nil {
			s.logger.WithError(err).Warn("failed to log unsupported call attempt")
		}
		return call, ErrUnsupported
	}

	callSID, err := s.placeCall(ctx, number)
	if err != nil {
		call.Status = models.CallStatusFailed
		call.Error = err.Error()
		if logErr := s.callRepo.Create(ctx, call); logErr != nil {
			s.logger.WithError(logErr).Warn("failed to log failed call")
		}
		return call, fmt.Errorf("failed to initiate emergency call: %w", err)
	}

	call.CallSID = callSID
	if err := s.callRepo.Create(ctx, call); err != nil {
		s.logger.WithError(err).Warn("failed to log emergency call")
	}

	s.logger.WithUserID(userID).WithFields(map[string]interface{}{
		"call_sid":     callSID,
		"sos_event_id": sosEventID.Hex(),
	}).Info("emergency call initiated")

	return call, nil
}

func (s *callService) placeCall(ctx context.Context, toNumber string) (string, error) {
	webhookURL := fmt.Sprintf("%s/api/v1/webhooks/twilio/call-status", s.baseURL)

	params := &api.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.twilioFromNumber)
	params.SetUrl(webhookURL)
	params.SetMethod("POST")
	params.SetTimeout(30)
	params.SetStatusCallback(webhookURL)
	params.SetStatusCallbackMethod("POST")

	resp, err := s.twilioClient.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("failed to create Twilio call: %w", err)
	}

	return *resp.Sid, nil
}

func (s *callService) UpdateCallStatus(ctx context.Context, callSID string, status models.CallStatus, duration int) error {
	return s.callRepo.UpdateStatus(ctx, callSID, status, duration)
}

func (s *callService) HandleCallStatusWebhook(ctx context.Context, webhookData map[string]interface{}) error {
	callSID, _ := webhookData["CallSid"].(string)
	if callSID == "" {
		return fmt.Errorf("webhook missing CallSid")
	}

	status := models.CallStatusInitiated
	switch webhookData["CallStatus"] {
	case "completed":
		status = models.CallStatusCompleted
	case "failed", "busy", "no-answer", "canceled":
		status = models.CallStatusFailed
	}

	duration := 0
	if d, ok := webhookData["CallDuration"].(string); ok {
		fmt.Sscanf(d, "%d", &duration)
	}

	return s.UpdateCallStatus(ctx, callSID, status, duration)
}

func (s *callService) GetCallHistory(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.CallLog, int64, error) {
	return s.callRepo.ListByUser(ctx, userID, params)
}
