package services

import (
	"context"
	"time"

	"safecircle/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Positioning obtains device coordinates. The device reports fixes; a
// bounded wait is placed on consumers so a missing fix degrades fast.
type Positioning interface {
	// GetCurrentPosition returns a sufficiently fresh fix for the user,
	// or ErrTimeout / ErrPermissionDenied wrapped in
	// ErrPositionUnavailable semantics at the call sites.
	GetCurrentPosition(ctx context.Context, userID primitive.ObjectID, timeout time.Duration) (*models.Position, error)

	// ReportPosition ingests a fix pushed by the device.
	ReportPosition(ctx context.Context, userID primitive.ObjectID, position models.Position) error
}

// Telephony places emergency calls. Returns ErrUnsupported when the
// platform cannot place calls; callers treat that as a surfaced warning,
// never as a state rollback.
type Telephony interface {
	InitiateEmergencyCall(ctx context.Context, userID primitive.ObjectID, sosEventID primitive.ObjectID, number string) (*models.CallLog, error)
}

// RecipientNotifier fans an alert out to a contact set. Best-effort:
// per-contact failures are recorded, not propagated.
type RecipientNotifier interface {
	NotifyRecipients(ctx context.Context, contacts []*models.Contact, payload *AlertPayload) []models.NotifiedContact
}

// AlertPayload is what recipients receive, for both SOS fan-out and
// share-session invitations.
type AlertPayload struct {
	Kind      string             `json:"kind"` // sos, share_invite, share_stopped
	UserID    primitive.ObjectID `json:"user_id"`
	UserName  string             `json:"user_name"`
	Message   string             `json:"message"`
	Position  *models.Position   `json:"position,omitempty"`
	ShareURL  string             `json:"share_url,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// StateStream publishes observable state to the UI layer. Satisfied by
// pkg/websocket.Handler.
type StateStream interface {
	SendUserNotification(userID primitive.ObjectID, eventType string, data map[string]interface{})

	// SendShareUpdate fans an event out to the share-token room, where
	// link viewers without an account listen.
	SendShareUpdate(shareToken string, eventType string, data map[string]interface{})
}

// noopStream lets services run without a websocket layer (tests, CLI).
type noopStream struct{}

func (noopStream) SendUserNotification(primitive.ObjectID, string, map[string]interface{}) {}

func (noopStream) SendShareUpdate(string, string, map[string]interface{}) {}
