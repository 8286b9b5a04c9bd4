package services

import (
	"context"
	"testing"
	"time"

	"safecircle/internal/config"
	"safecircle/internal/models"
	"safecircle/internal/utils"
	"safecircle/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func testSafetyConfig() *config.SafetyConfig {
	return &config.SafetyConfig{
		CountdownTicks:    3,
		CountdownInterval: 5 * time.Millisecond,
		EmergencyNumber:   "911",

		PositionFixTimeout: 50 * time.Millisecond,
		PositionMaxAge:     30 * time.Second,
		PositionPollEvery:  5 * time.Millisecond,
		StoreWriteTimeout:  100 * time.Millisecond,
		ShareLinkBase:      "https://safecircle.app/share",
	}
}

type sosFixture struct {
	service   *sosService
	sosRepo   *fakeSOSRepo
	contacts  *fakeContactRepo
	position  *fakePositioning
	telephony *fakeTelephony
	notifier  *fakeNotifier
	stream    *recordingStream
	userID    primitive.ObjectID
}

func newSOSFixture(t *testing.T) *sosFixture {
	t.Helper()

	f := &sosFixture{
		sosRepo:   newFakeSOSRepo(),
		contacts:  newFakeContactRepo(),
		position:  &fakePositioning{position: &models.Position{Latitude: 40.0, Longitude: -70.0, Timestamp: time.Now()}},
		telephony: &fakeTelephony{},
		notifier:  &fakeNotifier{},
		stream:    &recordingStream{},
		userID:    primitive.NewObjectID(),
	}

	f.contacts.add(&models.Contact{
		ID:          primitive.NewObjectID(),
		UserID:      f.userID,
		DisplayName: "Jordan",
		Phone:       "+15551230001",
		IsEmergency: true,
	})

	svc := NewSOSService(testSafetyConfig(), f.sosRepo, f.contacts, f.position, f.telephony, f.notifier, f.stream, testLogger(t))
	f.service = svc.(*sosService)
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSOSFullCountdownActivates(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, &models.StartSOSRequest{
		Capabilities: models.DeviceCapabilities{Vibration: true, Telephony: true},
	})
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}
	if event.State != models.SOSStateCountdown {
		t.Fatalf("expected countdown state, got %s", event.State)
	}

	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})

	waitFor(t, "emergency call", func() bool { return f.telephony.callCount() == 1 })
	waitFor(t, "contact notification", func() bool { return f.notifier.payloadCount() == 1 })

	if payload := f.notifier.lastPayload(); payload.Kind != "sos" {
		t.Fatalf("expected sos payload, got %q", payload.Kind)
	}
	if !f.stream.has(utils.EventSOSActivated) {
		t.Fatal("activation was not streamed")
	}
	if f.stream.countOf(utils.EventSOSCountdownTick) == 0 {
		t.Fatal("no countdown ticks were streamed")
	}
}

func TestSOSCancelDuringCountdown(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	// Long countdown so cancellation always lands first
	f.service.cfg.CountdownInterval = 100 * time.Millisecond
	f.service.cfg.CountdownTicks = 10

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	if err := f.service.CancelSOS(ctx, f.userID); err != nil {
		t.Fatalf("CancelSOS failed: %v", err)
	}

	stored := f.sosRepo.stored(event.ID)
	if stored == nil || stored.State != models.SOSStateCancelled {
		t.Fatalf("expected cancelled in store, got %+v", stored)
	}

	// Give any stray timer a chance to misfire
	time.Sleep(250 * time.Millisecond)
	if f.telephony.callCount() != 0 {
		t.Fatal("cancelled countdown still placed a call")
	}
	if f.notifier.payloadCount() != 0 {
		t.Fatal("cancelled countdown still notified contacts")
	}
	if f.stream.has(utils.EventSOSActivated) {
		t.Fatal("cancelled countdown still activated")
	}
}

func TestSOSDoubleTapCancelsCountdown(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	f.service.cfg.CountdownInterval = 100 * time.Millisecond
	f.service.cfg.CountdownTicks = 10

	first, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	second, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("second StartSOS failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatal("double tap should act on the running countdown")
	}
	if second.State != models.SOSStateCancelled {
		t.Fatalf("expected cancelled after double tap, got %s", second.State)
	}
}

func TestSOSStartWhileActiveIsNoop(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})

	again, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS on active failed: %v", err)
	}
	if again.ID != event.ID {
		t.Fatal("start during active should return the active event")
	}
	if again.State != models.SOSStateActive {
		t.Fatalf("expected active, got %s", again.State)
	}
}

func TestSOSCancelAfterActivationIsNoop(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})

	if err := f.service.CancelSOS(ctx, f.userID); err != nil {
		t.Fatalf("CancelSOS after activation should be a silent no-op: %v", err)
	}

	stored := f.sosRepo.stored(event.ID)
	if stored.State != models.SOSStateActive {
		t.Fatalf("cancel after activation changed state to %s", stored.State)
	}
}

func TestSOSResolveActiveEvent(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})

	if err := f.service.ResolveSOS(ctx, f.userID); err != nil {
		t.Fatalf("ResolveSOS failed: %v", err)
	}

	stored := f.sosRepo.stored(event.ID)
	if stored.State != models.SOSStateResolved {
		t.Fatalf("expected resolved, got %s", stored.State)
	}
	if !f.stream.has(utils.EventSOSResolved) {
		t.Fatal("resolution was not streamed")
	}

	// The slot is free again
	if _, err := f.service.StartSOS(ctx, f.userID, nil); err != nil {
		t.Fatalf("StartSOS after resolve failed: %v", err)
	}
}

func TestSOSTelephonyFailureKeepsActive(t *testing.T) {
	f := newSOSFixture(t)
	f.telephony.err = ErrUnsupported
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})

	waitFor(t, "telephony warning", func() bool { return f.stream.has(utils.CodeUnsupported) })

	// Contacts are still notified even when the call cannot be placed
	waitFor(t, "contact notification", func() bool { return f.notifier.payloadCount() == 1 })

	stored := f.sosRepo.stored(event.ID)
	if stored.State != models.SOSStateActive {
		t.Fatalf("telephony failure reverted state to %s", stored.State)
	}
}

func TestSOSStoreFailureDoesNotBlockCountdown(t *testing.T) {
	f := newSOSFixture(t)
	f.sosRepo.failWrites = true
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS must succeed without store connectivity: %v", err)
	}
	if event.State != models.SOSStateCountdown {
		t.Fatalf("expected countdown, got %s", event.State)
	}

	// Activation stands locally and the failure is surfaced as a warning
	waitFor(t, "store failure warning", func() bool { return f.stream.has(utils.CodeStoreWriteFailed) })
	waitFor(t, "activation event", func() bool { return f.stream.has(utils.EventSOSActivated) })

	live, err := f.service.LiveEvent(ctx, f.userID)
	if err != nil {
		t.Fatalf("LiveEvent failed: %v", err)
	}
	if live == nil || live.State != models.SOSStateActive {
		t.Fatal("activation did not stand after store failure")
	}
}

func TestSOSDegradedFeedbackWithoutVibration(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	event, err := f.service.StartSOS(ctx, f.userID, &models.StartSOSRequest{
		Capabilities: models.DeviceCapabilities{Vibration: false},
	})
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	if !event.DegradedFeedback {
		t.Fatal("missing vibration capability should degrade feedback")
	}

	// Degradation never blocks activation
	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})
}

func TestSOSFallsBackToAllContacts(t *testing.T) {
	f := newSOSFixture(t)
	ctx := context.Background()

	// Demote the emergency contact; the fan-out should fall back to the
	// full directory rather than notifying nobody.
	for _, contact := range f.contacts.contacts {
		contact.IsEmergency = false
	}

	event, err := f.service.StartSOS(ctx, f.userID, nil)
	if err != nil {
		t.Fatalf("StartSOS failed: %v", err)
	}

	waitFor(t, "activation", func() bool {
		stored := f.sosRepo.stored(event.ID)
		return stored != nil && stored.State == models.SOSStateActive
	})
	waitFor(t, "fallback notification", func() bool { return f.notifier.payloadCount() == 1 })
}
