package mongodb

import (
	"context"
	"fmt"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type contactRepository struct {
	collection *mongo.Collection
}

func NewContactRepository(db *mongo.Database) interfaces.ContactRepository {
	return &contactRepository{
		collection: db.Collection("contacts"),
	}
}

func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	contact.ID = primitive.NewObjectID()
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, contact)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

func (r *contactRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	var contact models.Contact
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contact)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("contact not found")
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

func (r *contactRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("contact not found")
	}

	return nil
}

func (r *contactRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	return nil
}

func (r *contactRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *contactRepository) GetByIDs(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Contact, error) {
	// Scoped to the owner so one user cannot address another's contacts.
	filter := bson.M{
		"user_id": userID,
		"_id":     bson.M{"$in": ids},
	}
	return r.find(ctx, filter)
}

func (r *contactRepository) ListEmergencyByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error) {
	filter := bson.M{
		"user_id":      userID,
		"is_emergency": true,
	}
	return r.find(ctx, filter)
}

func (r *contactRepository) find(ctx context.Context, filter bson.M) ([]*models.Contact, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: 1},
		{Key: "display_name", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts: %w", err)
	}
	defer cursor.Close(ctx)

	var contacts []*models.Contact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	return contacts, nil
}
