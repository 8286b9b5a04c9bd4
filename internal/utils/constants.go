package utils

import "time"

// Application Constants
const (
	AppName    = "SafeCircle"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// SOS countdown defaults. Runtime values come from SafetyConfig;
	// these back the config defaults and the tests.
	DefaultCountdownTicks    = 5
	DefaultCountdownInterval = time.Second

	// Positioning
	DefaultPositionFixTimeout = 10 * time.Second
	DefaultPositionMaxAge     = 30 * time.Second

	// Notification
	NotificationRetryAttempts = 3
	NotificationTimeout       = 30 * time.Second

	// Evidence uploads
	MaxAudioSize = 50 * 1024 * 1024  // 50MB
	MaxPhotoSize = 5 * 1024 * 1024   // 5MB
	MaxVideoSize = 100 * 1024 * 1024 // 100MB

	// Contacts
	MaxContactsPerUser = 20
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Error Messages
const (
	ErrInvalidInput        = "invalid input"
	ErrInternalServer      = "internal server error"
	ErrUnauthorized        = "unauthorized"
	ErrForbidden           = "forbidden"
	ErrNotFound            = "not found"
	ErrConflict            = "conflict"
	ErrValidationFailed    = "validation failed"
	ErrFileUploadFailed    = "file upload failed"
	ErrPermissionDenied    = "permission denied"
	ErrPositionUnavailable = "position unavailable"
	ErrNoRecipients        = "no recipients selected"
)

// Error Codes returned in the API error envelope
const (
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodePositionUnavailable = "POSITION_UNAVAILABLE"
	CodeNoRecipients        = "NO_RECIPIENTS"
	CodeStoreWriteFailed    = "STORE_WRITE_FAILED"
	CodeUnsupported         = "UNSUPPORTED"
)

// Cache Keys
const (
	CacheSOSPrefix       = "sos:"
	CacheSessionPrefix   = "share:"
	CacheContactPrefix   = "contact:"
	CachePositionPrefix  = "position:"
	CacheRateLimitPrefix = "rate_limit:"
)

// Event Types pushed over the websocket state streams
const (
	EventSOSCountdownStarted = "sos_countdown_started"
	EventSOSCountdownTick    = "sos_countdown_tick"
	EventSOSActivated        = "sos_activated"
	EventSOSCancelled        = "sos_cancelled"
	EventSOSResolved         = "sos_resolved"
	EventShareStarted        = "share_started"
	EventShareStopped        = "share_stopped"
	EventSharePosition       = "share_position"
	EventPositionRequest     = "position_request"
	EventPositionStale       = "position_stale"
)
