package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DurationPreset string

const (
	DurationFifteenMinutes DurationPreset = "15m"
	DurationThirtyMinutes  DurationPreset = "30m"
	DurationOneHour        DurationPreset = "1h"
	DurationTwoHours       DurationPreset = "2h"
	DurationContinuous     DurationPreset = "continuous"
)

// Offset maps a preset to its sharing window. ok is false for unknown
// presets; Continuous returns a zero offset with ok true.
func (d DurationPreset) Offset() (time.Duration, bool) {
	switch d {
	case DurationFifteenMinutes:
		return 15 * time.Minute, true
	case DurationThirtyMinutes:
		return 30 * time.Minute, true
	case DurationOneHour:
		return time.Hour, true
	case DurationTwoHours:
		return 2 * time.Hour, true
	case DurationContinuous:
		return 0, true
	default:
		return 0, false
	}
}

func (d DurationPreset) IsContinuous() bool {
	return d == DurationContinuous
}

type LocationShareSession struct {
	ID                primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID            primitive.ObjectID   `json:"user_id" bson:"user_id" validate:"required"`
	RecipientIDs      []primitive.ObjectID `json:"recipient_ids" bson:"recipient_ids" validate:"required,min=1"`
	Duration          DurationPreset       `json:"duration" bson:"duration"`
	ShareToken        string               `json:"share_token" bson:"share_token"`
	ShareURL          string               `json:"share_url" bson:"share_url"`
	IsActive          bool                 `json:"is_active" bson:"is_active" default:"true"`
	StartedAt         time.Time            `json:"started_at" bson:"started_at"`
	ExpiresAt         *time.Time           `json:"expires_at" bson:"expires_at"` // nil means continuous
	LastKnownPosition Position             `json:"last_known_position" bson:"last_known_position"`
	PositionStale     bool                 `json:"position_stale" bson:"position_stale"`
	StoppedAt         *time.Time           `json:"stopped_at" bson:"stopped_at"`
	SupersededBy      *primitive.ObjectID  `json:"superseded_by" bson:"superseded_by"`
	CreatedAt         time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at" bson:"updated_at"`
}

// Expired reports whether the sharing window has closed. Continuous
// sessions never expire on their own.
func (s *LocationShareSession) Expired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ExpiresAt)
}

type StartShareRequest struct {
	RecipientIDs []primitive.ObjectID `json:"recipient_ids"`
	Duration     DurationPreset       `json:"duration"`
}
