package interfaces

import (
	"context"

	"safecircle/internal/models"
	"safecircle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CallLogRepository interface {
	Create(ctx context.Context, call *models.CallLog) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CallLog, error)
	UpdateStatus(ctx context.Context, callSID string, status models.CallStatus, duration int) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.CallLog, int64, error)
}
