package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CallStatus string

const (
	CallStatusInitiated   CallStatus = "initiated"
	CallStatusCompleted   CallStatus = "completed"
	CallStatusFailed      CallStatus = "failed"
	CallStatusUnsupported CallStatus = "unsupported"
)

type CallLog struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `json:"user_id" bson:"user_id" validate:"required"`
	SOSEventID *primitive.ObjectID `json:"sos_event_id" bson:"sos_event_id"`
	CallSID    string              `json:"call_sid" bson:"call_sid"`
	ToNumber   string              `json:"to_number" bson:"to_number"`
	FromNumber string              `json:"from_number" bson:"from_number"`
	Status     CallStatus          `json:"status" bson:"status"`
	Duration   int                 `json:"duration" bson:"duration"` // seconds
	Error      string              `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at" bson:"updated_at"`
}
