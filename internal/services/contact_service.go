package services

import (
	"context"
	"fmt"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"
	"safecircle/internal/utils"
	"safecircle/internal/validators"
	"safecircle/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactService manages the trusted-contact directory that SOS alerts
// and share invitations are delivered to.
type ContactService interface {
	AddContact(ctx context.Context, userID primitive.ObjectID, req *validators.ContactCreateRequest) (*models.Contact, error)
	GetContact(ctx context.Context, userID, contactID primitive.ObjectID) (*models.Contact, error)
	UpdateContact(ctx context.Context, userID, contactID primitive.ObjectID, req *validators.ContactUpdateRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID primitive.ObjectID) error
	ListContacts(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error)
	ListEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error)
}

type contactService struct {
	contactRepo interfaces.ContactRepository
	logger      *logger.Logger
	now         func() time.Time
}

func NewContactService(contactRepo interfaces.ContactRepository, log *logger.Logger) ContactService {
	return &contactService{
		contactRepo: contactRepo,
		logger:      log,
		now:         time.Now,
	}
}

func (s *contactService) AddContact(ctx context.Context, userID primitive.ObjectID, req *validators.ContactCreateRequest) (*models.Contact, error) {
	if errs := validators.ValidateContactCreate(req); len(errs) > 0 {
		return nil, errs
	}

	now := s.now()
	contact := &models.Contact{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		DisplayName:  req.DisplayName,
		Phone:        utils.NormalizePhone(req.Phone),
		Email:        req.Email,
		Relationship: req.Relationship,
		IsEmergency:  req.IsEmergency,
		Priority:     req.Priority,
		PushToken:    req.PushToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.logger.WithUserID(userID).WithField("contact_id", contact.ID.Hex()).Info("Contact added")
	return contact, nil
}

func (s *contactService) GetContact(ctx context.Context, userID, contactID primitive.ObjectID) (*models.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return contact, nil
}

func (s *contactService) UpdateContact(ctx context.Context, userID, contactID primitive.ObjectID, req *validators.ContactUpdateRequest) (*models.Contact, error) {
	if errs := validators.ValidateContactUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	if _, err := s.GetContact(ctx, userID, contactID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": s.now(),
	}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Phone != nil {
		updates["phone"] = utils.NormalizePhone(*req.Phone)
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Relationship != nil {
		updates["relationship"] = *req.Relationship
	}
	if req.IsEmergency != nil {
		updates["is_emergency"] = *req.IsEmergency
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.PushToken != nil {
		updates["push_token"] = *req.PushToken
	}

	if err := s.contactRepo.Update(ctx, contactID, updates); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	return s.contactRepo.GetByID(ctx, contactID)
}

func (s *contactService) DeleteContact(ctx context.Context, userID, contactID primitive.ObjectID) error {
	if _, err := s.GetContact(ctx, userID, contactID); err != nil {
		return err
	}

	if err := s.contactRepo.Delete(ctx, contactID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	s.logger.WithUserID(userID).WithField("contact_id", contactID.Hex()).Info("Contact deleted")
	return nil
}

func (s *contactService) ListContacts(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error) {
	return s.contactRepo.ListByUser(ctx, userID)
}

func (s *contactService) ListEmergencyContacts(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error) {
	return s.contactRepo.ListEmergencyByUser(ctx, userID)
}
