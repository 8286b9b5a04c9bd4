package utils

// IsValidCoordinates bounds-checks a reported fix before it is stored.
func IsValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
