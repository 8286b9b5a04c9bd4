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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sosRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewSOSRepository(db *mongo.Database, cache CacheService) interfaces.SOSRepository {
	return &sosRepository{
		collection: db.Collection("sos_events"),
		cache:      cache,
	}
}

func (r *sosRepository) Upsert(ctx context.Context, event *models.SOSEvent) error {
	now := time.Now()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, event, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert sos event: %w", err)
	}

	if event.State.IsLive() {
		r.cacheEvent(ctx, event)
	} else {
		r.invalidateEventCache(ctx, event.UserID)
	}

	return nil
}

func (r *sosRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error) {
	var event models.SOSEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("sos event not found")
		}
		return nil, fmt.Errorf("failed to get sos event: %w", err)
	}

	return &event, nil
}

func (r *sosRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update sos event: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("sos event not found")
	}

	return nil
}

// GetLiveByUser enforces the one-live-event-per-user invariant read side:
// callers check this slot before creating a new event.
func (r *sosRepository) GetLiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.SOSEvent, error) {
	if event := r.getEventFromCache(ctx, userID); event != nil {
		return event, nil
	}

	filter := bson.M{
		"user_id": userID,
		"state":   bson.M{"$in": []models.SOSState{models.SOSStateCountdown, models.SOSStateActive}},
	}

	var event models.SOSEvent
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "triggered_at", Value: -1}})).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get live sos event: %w", err)
	}

	r.cacheEvent(ctx, &event)
	return &event, nil
}

func (r *sosRepository) UpdateState(ctx context.Context, id primitive.ObjectID, state models.SOSState, at time.Time) error {
	updates := bson.M{
		"state":      state,
		"updated_at": at,
	}
	switch state {
	case models.SOSStateActive:
		updates["activated_at"] = at
	case models.SOSStateCancelled:
		updates["cancelled_at"] = at
	case models.SOSStateResolved:
		updates["resolved_at"] = at
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update sos state: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("sos event not found")
	}

	if state.IsTerminal() {
		var event models.SOSEvent
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err == nil {
			r.invalidateEventCache(ctx, event.UserID)
		}
	}

	return nil
}

func (r *sosRepository) AddNotifiedContact(ctx context.Context, id primitive.ObjectID, contact models.NotifiedContact) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"contacts_notified": contact},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record notified contact: %w", err)
	}

	return nil
}

func (r *sosRepository) AddMediaAttachment(ctx context.Context, id primitive.ObjectID, media models.MediaAttachment) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"media_attachments": media},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to attach media: %w", err)
	}

	return nil
}

func (r *sosRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSEvent, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sos events: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sos events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.SOSEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("failed to decode sos events: %w", err)
	}

	return events, total, nil
}

// Cache operations
func (r *sosRepository) cacheEvent(ctx context.Context, event *models.SOSEvent) {
	if r.cache != nil && event.State.IsLive() {
		cacheKey := fmt.Sprintf("%slive:%s", utils.CacheSOSPrefix, event.UserID.Hex())
		r.cache.Set(ctx, cacheKey, event, liveRecordTTL)
	}
}

func (r *sosRepository) getEventFromCache(ctx context.Context, userID primitive.ObjectID) *models.SOSEvent {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%slive:%s", utils.CacheSOSPrefix, userID.Hex())
	var event models.SOSEvent
	if err := r.cache.Get(ctx, cacheKey, &event); err != nil {
		return nil
	}

	return &event
}

func (r *sosRepository) invalidateEventCache(ctx context.Context, userID primitive.ObjectID) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%slive:%s", utils.CacheSOSPrefix, userID.Hex())
		r.cache.Delete(ctx, cacheKey)
	}
}
