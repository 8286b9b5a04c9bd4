package models

import (
	"time"
)

type Position struct {
	Latitude  float64   `json:"latitude" bson:"latitude" validate:"required,latitude"`
	Longitude float64   `json:"longitude" bson:"longitude" validate:"required,longitude"`
	Accuracy  float64   `json:"accuracy" bson:"accuracy"`
	Address   string    `json:"address,omitempty" bson:"address,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Age reports how long ago the fix was taken.
func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.Timestamp)
}

func (p Position) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0 && p.Timestamp.IsZero()
}
