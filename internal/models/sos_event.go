package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSState string

const (
	SOSStateCountdown SOSState = "countdown"
	SOSStateActive    SOSState = "active"
	SOSStateCancelled SOSState = "cancelled"
	SOSStateResolved  SOSState = "resolved"
)

// IsLive reports whether the event still occupies the per-user slot.
// At most one event per user may be live at any time.
func (s SOSState) IsLive() bool {
	return s == SOSStateCountdown || s == SOSStateActive
}

func (s SOSState) IsTerminal() bool {
	return s == SOSStateCancelled || s == SOSStateResolved
}

type SOSEvent struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID           primitive.ObjectID  `json:"user_id" bson:"user_id" validate:"required"`
	State            SOSState            `json:"state" bson:"state" default:"countdown"`
	TriggeredAt      time.Time           `json:"triggered_at" bson:"triggered_at"`
	ActivatedAt      *time.Time          `json:"activated_at" bson:"activated_at"`
	Location         *Position           `json:"location" bson:"location"`
	Message          string              `json:"message" bson:"message"`
	CallID           *primitive.ObjectID `json:"call_id" bson:"call_id"`
	ContactsNotified []NotifiedContact   `json:"contacts_notified" bson:"contacts_notified"`
	MediaAttachments []MediaAttachment   `json:"media_attachments" bson:"media_attachments"`
	DegradedFeedback bool                `json:"degraded_feedback" bson:"degraded_feedback"`
	CancelledAt      *time.Time          `json:"cancelled_at" bson:"cancelled_at"`
	ResolvedAt       *time.Time          `json:"resolved_at" bson:"resolved_at"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
}

type NotifiedContact struct {
	ContactID    primitive.ObjectID `json:"contact_id" bson:"contact_id"`
	Name         string             `json:"name" bson:"name"`
	Phone        string             `json:"phone" bson:"phone"`
	NotifyMethod string             `json:"notify_method" bson:"notify_method"` // sms, push, call
	NotifiedAt   time.Time          `json:"notified_at" bson:"notified_at"`
	Delivered    bool               `json:"delivered" bson:"delivered"`
}

type MediaAttachment struct {
	Type       string    `json:"type" bson:"type"` // audio, photo, video
	Key        string    `json:"key" bson:"key"`
	URL        string    `json:"url" bson:"url"`
	Size       int64     `json:"size" bson:"size"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// DeviceCapabilities is reported by the client when an SOS is triggered.
// Missing capabilities degrade the countdown to visual-only feedback; they
// never block activation.
type DeviceCapabilities struct {
	Vibration bool `json:"vibration"`
	Telephony bool `json:"telephony"`
}

type StartSOSRequest struct {
	Message      string             `json:"message"`
	Location     *Position          `json:"location"`
	Capabilities DeviceCapabilities `json:"capabilities"`
}
