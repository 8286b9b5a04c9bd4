package services

import "errors"

// Error taxonomy of the emergency coordination core. Handlers map these
// to stable API error codes; services wrap them with context via %w.
var (
	// ErrPermissionDenied means a device capability (vibration,
	// telephony, location permission) is unavailable.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPositionUnavailable means no position fix could be obtained
	// within the bounded timeout.
	ErrPositionUnavailable = errors.New("position unavailable")

	// ErrTimeout is the positioning collaborator's deadline error.
	ErrTimeout = errors.New("position fix timed out")

	// ErrNoRecipients rejects a share with an empty recipient set.
	ErrNoRecipients = errors.New("no recipients selected")

	// ErrStoreWriteFailed marks a persistence failure that survived the
	// single retry. Local state transitions are never reverted by it.
	ErrStoreWriteFailed = errors.New("store write failed")

	// ErrUnsupported means telephony is not available on this device or
	// platform.
	ErrUnsupported = errors.New("telephony unsupported")

	ErrNotFound = errors.New("not found")
)
