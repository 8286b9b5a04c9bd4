package interfaces

import (
	"context"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionRepository interface {
	Upsert(ctx context.Context, session *models.LocationShareSession) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.LocationShareSession, error)
	GetByShareToken(ctx context.Context, token string) (*models.LocationShareSession, error)

	// ListActiveByUser is the app-resume recovery query.
	ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.LocationShareSession, error)

	// Deactivate is idempotent: deactivating an already-inactive
	// session is not an error.
	Deactivate(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkSuperseded(ctx context.Context, id primitive.ObjectID, successor primitive.ObjectID, at time.Time) error
	UpdatePosition(ctx context.Context, id primitive.ObjectID, position models.Position, stale bool) error

	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.LocationShareSession, int64, error)
}
