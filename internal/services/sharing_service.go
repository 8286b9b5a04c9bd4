package services

import (
	"context"
	"fmt"
	"time"

	"safecircle/internal/config"
	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"
	"safecircle/internal/utils"
	"safecircle/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharingService owns the lifecycle of live-location broadcasts. Expiry
// is lazy: recomputed from the stored deadline against the wall clock on
// every refresh and on app resume, never trusted to a background timer.
type SharingService interface {
	StartSession(ctx context.Context, userID primitive.ObjectID, recipientIDs []primitive.ObjectID, duration models.DurationPreset) (*models.LocationShareSession, error)
	StopSession(ctx context.Context, sessionID primitive.ObjectID) error
	RefreshPosition(ctx context.Context, sessionID primitive.ObjectID) (*models.LocationShareSession, error)
	CheckExpiry(ctx context.Context, sessionID primitive.ObjectID) (bool, error)

	// RecoverActiveSessions is the app-resume path: closes overdue
	// sessions and returns the ones still live.
	RecoverActiveSessions(ctx context.Context, userID primitive.ObjectID) ([]*models.LocationShareSession, error)

	GetSession(ctx context.Context, sessionID primitive.ObjectID) (*models.LocationShareSession, error)
	GetSessionByToken(ctx context.Context, token string) (*models.LocationShareSession, error)
	History(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.LocationShareSession, int64, error)
}

type sharingService struct {
	cfg         *config.SafetyConfig
	sessionRepo interfaces.SessionRepository
	contactRepo interfaces.ContactRepository
	positioning Positioning
	notifier    RecipientNotifier
	stream      StateStream
	logger      *logger.Logger
	now         func() time.Time
}

func NewSharingService(
	cfg *config.SafetyConfig,
	sessionRepo interfaces.SessionRepository,
	contactRepo interfaces.ContactRepository,
	positioning Positioning,
	notifier RecipientNotifier,
	stream StateStream,
	log *logger.Logger,
) SharingService {
	if stream == nil {
		stream = noopStream{}
	}

	return &sharingService{
		cfg:         cfg,
		sessionRepo: sessionRepo,
		contactRepo: contactRepo,
		positioning: positioning,
		notifier:    notifier,
		stream:      stream,
		logger:      log,
		now:         time.Now,
	}
}

func (s *sharingService) StartSession(ctx context.Context, userID primitive.ObjectID, recipientIDs []primitive.ObjectID, duration models.DurationPreset) (*models.LocationShareSession, error) {
	if len(recipientIDs) == 0 {
		return nil, ErrNoRecipients
	}

	offset, ok := duration.Offset()
	if !ok {
		return nil, fmt.Errorf("unknown duration preset %q", duration)
	}

	// Recipient membership is validated against the directory at start
	// only; it is not re-checked for the life of the session.
	contacts, err := s.contactRepo.GetByIDs(ctx, userID, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}
	if len(contacts) == 0 {
		return nil, ErrNoRecipients
	}

	// Sharing without a position is not useful, so unlike SOS the start
	// fails visibly when no fix can be obtained.
	position, err := s.positioning.GetCurrentPosition(ctx, userID, s.cfg.PositionFixTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	now := s.now()
	session := &models.LocationShareSession{
		ID:                primitive.NewObjectID(),
		UserID:            userID,
		RecipientIDs:      recipientIDsOf(contacts),
		Duration:          duration,
		ShareToken:        uuid.NewString(),
		IsActive:          true,
		StartedAt:         now,
		LastKnownPosition: *position,
	}
	session.ShareURL = fmt.Sprintf("%s/%s", s.cfg.ShareLinkBase, session.ShareToken)
	if !duration.IsContinuous() {
		expires := now.Add(offset)
		session.ExpiresAt = &expires
	}

	// One active session per user: an existing one is superseded within
	// the same start operation.
	prior, err := s.sessionRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active sessions: %w", err)
	}
	for _, p := range prior {
		if err := s.sessionRepo.MarkSuperseded(ctx, p.ID, session.ID, now); err != nil {
			return nil, fmt.Errorf("failed to supersede session %s: %w", p.ID.Hex(), err)
		}
		s.stream.SendUserNotification(userID, utils.EventShareStopped, map[string]interface{}{
			"session_id": p.ID.Hex(),
			"reason":     "superseded",
		})
		s.stream.SendShareUpdate(p.ShareToken, utils.EventShareStopped, map[string]interface{}{
			"session_id": p.ID.Hex(),
			"reason":     "superseded",
		})
	}

	if err := s.sessionRepo.Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	if s.notifier != nil {
		payload := &AlertPayload{
			Kind:      "share_invite",
			UserID:    userID,
			Position:  position,
			ShareURL:  session.ShareURL,
			Timestamp: now,
		}
		s.notifier.NotifyRecipients(ctx, contacts, payload)
	}

	s.logger.WithUserID(userID).WithFields(map[string]interface{}{
		"session_id": session.ID.Hex(),
		"duration":   string(duration),
		"recipients": len(session.RecipientIDs),
	}).Info("location share started")

	s.stream.SendUserNotification(userID, utils.EventShareStarted, map[string]interface{}{
		"session_id": session.ID.Hex(),
		"expires_at": session.ExpiresAt,
	})

	return session, nil
}

// StopSession deactivates the session. Idempotent: stopping an already
// inactive session succeeds with no effect.
func (s *sharingService) StopSession(ctx context.Context, sessionID primitive.ObjectID) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if !session.IsActive {
		return nil
	}

	if err := s.sessionRepo.Deactivate(ctx, sessionID, s.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	s.logger.WithUserID(session.UserID).WithSessionID(sessionID).Info("location share stopped")
	s.stream.SendUserNotification(session.UserID, utils.EventShareStopped, map[string]interface{}{
		"session_id": sessionID.Hex(),
		"reason":     "stopped",
	})
	s.stream.SendShareUpdate(session.ShareToken, utils.EventShareStopped, map[string]interface{}{
		"session_id": sessionID.Hex(),
		"reason":     "stopped",
	})

	return nil
}

// RefreshPosition re-reads the device position and updates the session
// record. A failed fix keeps the previous position, marked stale, and is
// surfaced as a warning rather than a session failure.
func (s *sharingService) RefreshPosition(ctx context.Context, sessionID primitive.ObjectID) (*models.LocationShareSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	// The refresh tick doubles as the expiry check.
	if expired, err := s.checkExpiry(ctx, session); err != nil {
		return nil, err
	} else if expired {
		return session, nil
	}

	if !session.IsActive {
		return session, nil
	}

	position, err := s.positioning.GetCurrentPosition(ctx, session.UserID, s.cfg.PositionFixTimeout)
	if err != nil {
		s.logger.WithError(err).WithSessionID(sessionID).Warn("position refresh failed, keeping stale fix")
		if !session.PositionStale {
			session.PositionStale = true
			if err := s.sessionRepo.UpdatePosition(ctx, sessionID, session.LastKnownPosition, true); err != nil {
				s.logger.WithError(err).Warn("failed to flag stale position")
			}
		}
		s.stream.SendUserNotification(session.UserID, utils.EventPositionStale, map[string]interface{}{
			"session_id": sessionID.Hex(),
			"warning":    "position may be outdated",
		})
		s.stream.SendShareUpdate(session.ShareToken, utils.EventPositionStale, map[string]interface{}{
			"session_id": sessionID.Hex(),
			"warning":    "position may be outdated",
		})
		return session, nil
	}

	session.LastKnownPosition = *position
	session.PositionStale = false
	if err := s.sessionRepo.UpdatePosition(ctx, sessionID, *position, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	s.stream.SendUserNotification(session.UserID, utils.EventSharePosition, map[string]interface{}{
		"session_id": sessionID.Hex(),
		"latitude":   position.Latitude,
		"longitude":  position.Longitude,
		"timestamp":  position.Timestamp,
	})
	s.stream.SendShareUpdate(session.ShareToken, utils.EventSharePosition, map[string]interface{}{
		"session_id": sessionID.Hex(),
		"latitude":   position.Latitude,
		"longitude":  position.Longitude,
		"timestamp":  position.Timestamp,
	})

	return session, nil
}

// CheckExpiry closes the session if its deadline has passed. It reports
// whether the session is now expired.
func (s *sharingService) CheckExpiry(ctx context.Context, sessionID primitive.ObjectID) (bool, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return s.checkExpiry(ctx, session)
}

func (s *sharingService) checkExpiry(ctx context.Context, session *models.LocationShareSession) (bool, error) {
	if !session.Expired(s.now()) {
		return false, nil
	}
	if !session.IsActive {
		return true, nil
	}

	// Overdue sessions are expired immediately; there is no guarantee a
	// timer fired anywhere near the deadline.
	if err := s.sessionRepo.Deactivate(ctx, session.ID, s.now()); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	session.IsActive = false

	s.logger.WithUserID(session.UserID).WithSessionID(session.ID).Info("location share expired")
	s.stream.SendUserNotification(session.UserID, utils.EventShareStopped, map[string]interface{}{
		"session_id": session.ID.Hex(),
		"reason":     "expired",
	})
	s.stream.SendShareUpdate(session.ShareToken, utils.EventShareStopped, map[string]interface{}{
		"session_id": session.ID.Hex(),
		"reason":     "expired",
	})

	return true, nil
}

func (s *sharingService) RecoverActiveSessions(ctx context.Context, userID primitive.ObjectID) ([]*models.LocationShareSession, error) {
	sessions, err := s.sessionRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sessions: %w", err)
	}

	live := sessions[:0]
	for _, session := range sessions {
		expired, err := s.checkExpiry(ctx, session)
		if err != nil {
			return nil, err
		}
		if !expired {
			live = append(live, session)
		}
	}

	return live, nil
}

func (s *sharingService) GetSession(ctx context.Context, sessionID primitive.ObjectID) (*models.LocationShareSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return session, nil
}

func (s *sharingService) GetSessionByToken(ctx context.Context, token string) (*models.LocationShareSession, error) {
	session, err := s.sessionRepo.GetByShareToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	// Link viewers see expiry enforced lazily as well.
	if _, err := s.checkExpiry(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *sharingService) History(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.LocationShareSession, int64, error) {
	return s.sessionRepo.ListByUser(ctx, userID, params)
}

func recipientIDsOf(contacts []*models.Contact) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}
	return ids
}
