package interfaces

import (
	"context"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SOSRepository is the durable store for SOS events. Writes are single
// independent upserts keyed by event id; the store is the source of
// truth recovered after a restart.
type SOSRepository interface {
	Upsert(ctx context.Context, event *models.SOSEvent) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// GetLiveByUser returns the event in countdown or active state for
	// the user, or nil if the slot is free.
	GetLiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.SOSEvent, error)
	UpdateState(ctx context.Context, id primitive.ObjectID, state models.SOSState, at time.Time) error
	AddNotifiedContact(ctx context.Context, id primitive.ObjectID, contact models.NotifiedContact) error
	AddMediaAttachment(ctx context.Context, id primitive.ObjectID, media models.MediaAttachment) error

	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSEvent, int64, error)
}
