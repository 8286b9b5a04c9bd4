package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Contact struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	DisplayName  string             `json:"display_name" bson:"display_name" validate:"required"`
	Phone        string             `json:"phone" bson:"phone" validate:"required,phone"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	Relationship string             `json:"relationship" bson:"relationship"`
	IsEmergency  bool               `json:"is_emergency" bson:"is_emergency"`
	Priority     int                `json:"priority" bson:"priority"`
	PushToken    string             `json:"push_token,omitempty" bson:"push_token,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
