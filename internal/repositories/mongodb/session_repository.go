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

type sessionRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewSessionRepository(db *mongo.Database, cache CacheService) interfaces.SessionRepository {
	return &sessionRepository{
		collection: db.Collection("location_share_sessions"),
		cache:      cache,
	}
}

func (r *sessionRepository) Upsert(ctx context.Context, session *models.LocationShareSession) error {
	now := time.Now()
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert share session: %w", err)
	}

	if session.IsActive {
		r.cacheSession(ctx, session)
	} else {
		r.invalidateSessionCache(ctx, session.ID)
	}

	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.LocationShareSession, error) {
	if session := r.getSessionFromCache(ctx, id); session != nil {
		return session, nil
	}

	var session models.LocationShareSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("share session not found")
		}
		return nil, fmt.Errorf("failed to get share session: %w", err)
	}

	if session.IsActive {
		r.cacheSession(ctx, &session)
	}

	return &session, nil
}

func (r *sessionRepository) GetByShareToken(ctx context.Context, token string) (*models.LocationShareSession, error) {
	var session models.LocationShareSession
	err := r.collection.FindOne(ctx, bson.M{"share_token": token}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("share session not found")
		}
		return nil, fmt.Errorf("failed to get share session by token: %w", err)
	}

	return &session, nil
}

func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.LocationShareSession, error) {
	filter := bson.M{
		"user_id":   userID,
		"is_active": true,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*models.LocationShareSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode active sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) Deactivate(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	// Matching on is_active makes repeated deactivation a no-op rather
	// than an error.
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{
			"is_active":  false,
			"stopped_at": at,
			"updated_at": at,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate share session: %w", err)
	}

	r.invalidateSessionCache(ctx, id)
	return nil
}

func (r *sessionRepository) MarkSuperseded(ctx context.Context, id primitive.ObjectID, successor primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"is_active":     false,
			"stopped_at":    at,
			"superseded_by": successor,
			"updated_at":    at,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to supersede share session: %w", err)
	}

	r.invalidateSessionCache(ctx, id)
	return nil
}

func (r *sessionRepository) UpdatePosition(ctx context.Context, id primitive.ObjectID, position models.Position, stale bool) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"last_known_position": position,
			"position_stale":      stale,
			"updated_at":          time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update session position: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("share session not found")
	}

	r.invalidateSessionCache(ctx, id)
	return nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.LocationShareSession, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count share sessions: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list share sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*models.LocationShareSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode share sessions: %w", err)
	}

	return sessions, total, nil
}

// Cache operations
func (r *sessionRepository) cacheSession(ctx context.Context, session *models.LocationShareSession) {
	if r.cache != nil && session.IsActive {
		cacheKey := fmt.Sprintf("%s%s", utils.CacheSessionPrefix, session.ID.Hex())
		r.cache.Set(ctx, cacheKey, session, liveRecordTTL)
	}
}

func (r *sessionRepository) getSessionFromCache(ctx context.Context, id primitive.ObjectID) *models.LocationShareSession {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CacheSessionPrefix, id.Hex())
	var session models.LocationShareSession
	if err := r.cache.Get(ctx, cacheKey, &session); err != nil {
		return nil
	}

	return &session
}

func (r *sessionRepository) invalidateSessionCache(ctx context.Context, id primitive.ObjectID) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CacheSessionPrefix, id.Hex())
		r.cache.Delete(ctx, cacheKey)
	}
}
