package maps

import "context"

// Geocoder resolves human-readable place descriptions for coordinates.
// Alert messages use it to describe where a person is; callers must treat
// failures as non-fatal and fall back to raw coordinates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	Geocode(ctx context.Context, address string) (*Location, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}
