package interfaces

import (
	"context"

	"safecircle/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactRepository is the contact directory. The coordination core only
// reads it; the CRUD surface exists for the contact management screens.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error)
	GetByIDs(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Contact, error)
	ListEmergencyByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error)
}
