package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"safecircle/internal/config"
	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"
	"safecircle/internal/utils"
	"safecircle/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SOSService converts a single help gesture into a confirmed emergency
// broadcast, with a cancellable countdown in between.
type SOSService interface {
	// StartSOS begins the countdown. Calling it again while a countdown
	// is running cancels that countdown (the SOS button doubles as the
	// tap-to-cancel affordance); calling it while an event is already
	// active is a no-op returning the active event.
	StartSOS(ctx context.Context, userID primitive.ObjectID, req *models.StartSOSRequest) (*models.SOSEvent, error)

	// CancelSOS is valid only during the countdown. From any other
	// state it is a silent no-op.
	CancelSOS(ctx context.Context, userID primitive.ObjectID) error

	// ResolveSOS is the explicit "I'm safe" action on an active event.
	ResolveSOS(ctx context.Context, userID primitive.ObjectID) error

	LiveEvent(ctx context.Context, userID primitive.ObjectID) (*models.SOSEvent, error)
	History(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSEvent, int64, error)
}

type sosInstance struct {
	event     *models.SOSEvent
	countdown *Countdown
}

type sosService struct {
	cfg         *config.SafetyConfig
	sosRepo     interfaces.SOSRepository
	contactRepo interfaces.ContactRepository
	positioning Positioning
	telephony   Telephony
	notifier    RecipientNotifier
	stream      StateStream
	logger      *logger.Logger
	now         func() time.Time

	mu   sync.Mutex
	live map[primitive.ObjectID]*sosInstance
}

func NewSOSService(
	cfg *config.SafetyConfig,
	sosRepo interfaces.SOSRepository,
	contactRepo interfaces.ContactRepository,
	positioning Positioning,
	telephony Telephony,
	notifier RecipientNotifier,
	stream StateStream,
	log *logger.Logger,
) SOSService {
	if stream == nil {
		stream = noopStream{}
	}

	return &sosService{
		cfg:         cfg,
		sosRepo:     sosRepo,
		contactRepo: contactRepo,
		positioning: positioning,
		telephony:   telephony,
		notifier:    notifier,
		stream:      stream,
		logger:      log,
		now:         time.Now,
		live:        make(map[primitive.ObjectID]*sosInstance),
	}
}

func (s *sosService) StartSOS(ctx context.Context, userID primitive.ObjectID, req *models.StartSOSRequest) (*models.SOSEvent, error) {
	if req == nil {
		req = &models.StartSOSRequest{}
	}

	s.mu.Lock()
	if inst, ok := s.live[userID]; ok {
		switch inst.event.State {
		case models.SOSStateCountdown:
			// Repeat tap during the countdown means cancel.
			s.mu.Unlock()
			if err := s.CancelSOS(ctx, userID); err != nil {
				return nil, err
			}
			return inst.event, nil
		case models.SOSStateActive:
			s.mu.Unlock()
			return inst.event, nil
		}
	}
	s.mu.Unlock()

	// The store is authoritative across restarts: adopt an event that is
	// still active, and close out a countdown orphaned by a crash.
	if stored, err := s.sosRepo.GetLiveByUser(ctx, userID); err == nil && stored != nil {
		switch stored.State {
		case models.SOSStateActive:
			s.adopt(stored)
			return stored, nil
		case models.SOSStateCountdown:
			if err := s.sosRepo.UpdateState(ctx, stored.ID, models.SOSStateCancelled, s.now()); err != nil {
				s.logger.WithError(err).Warn("failed to close orphaned countdown")
			}
		}
	}

	now := s.now()
	event := &models.SOSEvent{
		ID:               primitive.NewObjectID(),
		UserID:           userID,
		State:            models.SOSStateCountdown,
		TriggeredAt:      now,
		Location:         req.Location,
		Message:          req.Message,
		DegradedFeedback: !req.Capabilities.Vibration,
	}

	// Countdown proceeds even if this write fails: cancellation must
	// stay possible with no store connectivity.
	if err := s.sosRepo.Upsert(ctx, event); err != nil {
		s.logger.WithError(err).WithUserID(userID).Warn("sos countdown write failed, proceeding locally")
	}

	inst := &sosInstance{event: event}
	inst.countdown = NewCountdown(
		s.cfg.CountdownTicks,
		s.cfg.CountdownInterval,
		func(remaining int) { s.tick(userID, inst, remaining) },
		func() { s.activate(userID, inst) },
	)

	s.mu.Lock()
	s.live[userID] = inst
	s.mu.Unlock()

	s.logger.WithUserID(userID).WithEventID(event.ID).Info("sos countdown started")
	s.stream.SendUserNotification(userID, utils.EventSOSCountdownStarted, map[string]interface{}{
		"event_id": event.ID.Hex(),
		"ticks":    s.cfg.CountdownTicks,
		"interval": s.cfg.CountdownInterval.String(),
		"degraded": event.DegradedFeedback,
	})

	inst.countdown.Start()
	return event, nil
}

// tick is the per-second feedback pulse. It re-checks under the lock
// that this countdown handle is still the live one, so a stale timer
// never emits after the state machine has moved on.
func (s *sosService) tick(userID primitive.ObjectID, inst *sosInstance, remaining int) {
	s.mu.Lock()
	current, ok := s.live[userID]
	if !ok || current != inst || inst.event.State != models.SOSStateCountdown {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.stream.SendUserNotification(userID, utils.EventSOSCountdownTick, map[string]interface{}{
		"event_id":  inst.event.ID.Hex(),
		"remaining": remaining,
		"vibrate":   !inst.event.DegradedFeedback,
	})
}

// activate runs when the countdown elapses uncancelled. Once the state
// is Active it stays Active: the state records that help was requested,
// not that every downstream action succeeded.
func (s *sosService) activate(userID primitive.ObjectID, inst *sosInstance) {
	s.mu.Lock()
	current, ok := s.live[userID]
	if !ok || current != inst || inst.event.State != models.SOSStateCountdown {
		s.mu.Unlock()
		return
	}
	now := s.now()
	inst.event.State = models.SOSStateActive
	inst.event.ActivatedAt = &now
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreWriteTimeout+s.cfg.PositionFixTimeout)
	defer cancel()

	// Best-effort location: an SOS with a nil location is still valid.
	if inst.event.Location == nil && s.positioning != nil {
		if pos, err := s.positioning.GetCurrentPosition(ctx, userID, s.cfg.PositionFixTimeout); err == nil {
			inst.event.Location = pos
		} else {
			s.logger.WithError(err).WithUserID(userID).Warn("no position fix at sos activation")
		}
	}

	s.persistWithRetry(ctx, inst.event)

	s.stream.SendUserNotification(userID, utils.EventSOSActivated, map[string]interface{}{
		"event_id": inst.event.ID.Hex(),
	})

	s.placeEmergencyCall(ctx, inst.event)
	s.notifyContacts(ctx, inst.event)

	s.logger.LogSafetyEvent(inst.event.ID, "sos_activated", map[string]interface{}{
		"user_id":           userID.Hex(),
		"contacts_notified": len(inst.event.ContactsNotified),
		"has_location":      inst.event.Location != nil,
	})
}

// persistWithRetry writes the active event, retrying once. Persistent
// failure is surfaced as a warning; the local transition stands.
func (s *sosService) persistWithRetry(ctx context.Context, event *models.SOSEvent) {
	err := s.sosRepo.Upsert(ctx, event)
	if err == nil {
		return
	}

	s.logger.WithError(err).Warn("sos store write failed, retrying once")
	if err = s.sosRepo.Upsert(ctx, event); err != nil {
		s.logger.WithError(err).Error("sos store write failed after retry")
		s.stream.SendUserNotification(event.UserID, utils.CodeStoreWriteFailed, map[string]interface{}{
			"event_id": event.ID.Hex(),
			"warning":  "alert saved locally only",
		})
	}
}

func (s *sosService) placeEmergencyCall(ctx context.Context, event *models.SOSEvent) {
	if s.telephony == nil {
		return
	}

	call, err := s.telephony.InitiateEmergencyCall(ctx, event.UserID, event.ID, s.cfg.EmergencyNumber)
	if err != nil {
		s.logger.WithError(err).WithUserID(event.UserID).Warn("emergency call failed")
		s.stream.SendUserNotification(event.UserID, utils.CodeUnsupported, map[string]interface{}{
			"event_id": event.ID.Hex(),
			"warning":  "emergency call could not be placed",
		})
		return
	}

	s.mu.Lock()
	event.CallID = &call.ID
	s.mu.Unlock()

	if err := s.sosRepo.Update(ctx, event.ID, map[string]interface{}{"call_id": call.ID}); err != nil {
		s.logger.WithError(err).Warn("failed to link call to sos event")
	}
}

func (s *sosService) notifyContacts(ctx context.Context, event *models.SOSEvent) {
	if s.notifier == nil {
		return
	}

	contacts, err := s.contactRepo.ListEmergencyByUser(ctx, event.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load emergency contacts")
		return
	}
	if len(contacts) == 0 {
		contacts, err = s.contactRepo.ListByUser(ctx, event.UserID)
		if err != nil || len(contacts) == 0 {
			s.logger.WithUserID(event.UserID).Warn("sos activated with no contacts to notify")
			return
		}
	}

	payload := &AlertPayload{
		Kind:      "sos",
		UserID:    event.UserID,
		Message:   event.Message,
		Position:  event.Location,
		Timestamp: s.now(),
	}

	notified := s.notifier.NotifyRecipients(ctx, contacts, payload)
	for _, n := range notified {
		if err := s.sosRepo.AddNotifiedContact(ctx, event.ID, n); err != nil {
			s.logger.WithError(err).Warn("failed to record notified contact")
		}
	}

	s.mu.Lock()
	event.ContactsNotified = append(event.ContactsNotified, notified...)
	s.mu.Unlock()
}

func (s *sosService) CancelSOS(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	inst, ok := s.live[userID]
	if !ok || inst.event.State != models.SOSStateCountdown {
		s.mu.Unlock()
		// Not counting down: silent no-op, but close any countdown
		// orphaned in the store by a previous process.
		if stored, err := s.sosRepo.GetLiveByUser(ctx, userID); err == nil && stored != nil && stored.State == models.SOSStateCountdown {
			return s.sosRepo.UpdateState(ctx, stored.ID, models.SOSStateCancelled, s.now())
		}
		return nil
	}

	if !inst.countdown.Stop() {
		// Lost the race: the countdown elapsed and activation is
		// running. Cancellation no longer applies.
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	inst.event.State = models.SOSStateCancelled
	inst.event.CancelledAt = &now
	delete(s.live, userID)
	s.mu.Unlock()

	// Local cancellation always succeeds; the store write is best-effort.
	if err := s.sosRepo.UpdateState(ctx, inst.event.ID, models.SOSStateCancelled, now); err != nil {
		s.logger.WithError(err).Warn("failed to persist sos cancellation")
	}

	s.logger.WithUserID(userID).WithEventID(inst.event.ID).Info("sos cancelled")
	s.stream.SendUserNotification(userID, utils.EventSOSCancelled, map[string]interface{}{
		"event_id": inst.event.ID.Hex(),
	})

	return nil
}

func (s *sosService) ResolveSOS(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	inst, ok := s.live[userID]
	if ok && inst.event.State == models.SOSStateActive {
		now := s.now()
		inst.event.State = models.SOSStateResolved
		inst.event.ResolvedAt = &now
		delete(s.live, userID)
		s.mu.Unlock()

		if err := s.sosRepo.UpdateState(ctx, inst.event.ID, models.SOSStateResolved, now); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
		}

		s.stream.SendUserNotification(userID, utils.EventSOSResolved, map[string]interface{}{
			"event_id": inst.event.ID.Hex(),
		})
		return nil
	}
	s.mu.Unlock()

	// Resolve an event that outlived the process that activated it.
	stored, err := s.sosRepo.GetLiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if stored == nil || stored.State != models.SOSStateActive {
		return fmt.Errorf("%w: no active sos event", ErrNotFound)
	}

	now := s.now()
	if err := s.sosRepo.UpdateState(ctx, stored.ID, models.SOSStateResolved, now); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	s.stream.SendUserNotification(userID, utils.EventSOSResolved, map[string]interface{}{
		"event_id": stored.ID.Hex(),
	})
	return nil
}

func (s *sosService) LiveEvent(ctx context.Context, userID primitive.ObjectID) (*models.SOSEvent, error) {
	s.mu.Lock()
	if inst, ok := s.live[userID]; ok {
		event := inst.event
		s.mu.Unlock()
		return event, nil
	}
	s.mu.Unlock()

	return s.sosRepo.GetLiveByUser(ctx, userID)
}

func (s *sosService) History(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSEvent, int64, error) {
	return s.sosRepo.ListByUser(ctx, userID, params)
}

// adopt places a store-recovered active event under in-memory control.
func (s *sosService) adopt(event *models.SOSEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[event.UserID]; !ok {
		s.live[event.UserID] = &sosInstance{event: event}
	}
}
