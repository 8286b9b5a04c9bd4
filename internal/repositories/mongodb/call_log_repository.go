package mongodb

import (
	"context"
	"fmt"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"
	"safecircle/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type callLogRepository struct {
	collection *mongo.Collection
}

func NewCallLogRepository(db *mongo.Database) interfaces.CallLogRepository {
	return &callLogRepository{
		collection: db.Collection("call_logs"),
	}
}

func (r *callLogRepository) Create(ctx context.Context, call *models.CallLog) error {
	call.ID = primitive.NewObjectID()
	call.CreatedAt = time.Now()
	call.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, call)
	if err != nil {
		return fmt.Errorf("failed to create call log: %w", err)
	}

	return nil
}

func (r *callLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CallLog, error) {
	var call models.CallLog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&call)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("call log not found")
		}
		return nil, fmt.Errorf("failed to get call log: %w", err)
	}

	return &call, nil
}

func (r *callLogRepository) UpdateStatus(ctx context.Context, callSID string, status models.CallStatus, duration int) error {
	updates := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if duration > 0 {
		updates["duration"] = duration
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"call_sid": callSID}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}

	return nil
}

func (r *callLogRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.CallLog, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count call logs: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list call logs: %w", err)
	}
	defer cursor.Close(ctx)

	var calls []*models.CallLog
	if err := cursor.All(ctx, &calls); err != nil {
		return nil, 0, fmt.Errorf("failed to decode call logs: %w", err)
	}

	return calls, total, nil
}
