package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeClock lets expiry tests move the wall clock forward.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sharingFixture struct {
	service     *sharingService
	sessionRepo *fakeSessionRepo
	contacts    *fakeContactRepo
	position    *fakePositioning
	notifier    *fakeNotifier
	stream      *recordingStream
	clock       *fakeClock
	userID      primitive.ObjectID
	contactID   primitive.ObjectID
}

func newSharingFixture(t *testing.T) *sharingFixture {
	t.Helper()

	f := &sharingFixture{
		sessionRepo: newFakeSessionRepo(),
		contacts:    newFakeContactRepo(),
		position:    &fakePositioning{position: &models.Position{Latitude: 40.0, Longitude: -70.0, Timestamp: time.Now()}},
		notifier:    &fakeNotifier{},
		stream:      &recordingStream{},
		clock:       &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		userID:      primitive.NewObjectID(),
		contactID:   primitive.NewObjectID(),
	}

	f.contacts.add(&models.Contact{
		ID:          f.contactID,
		UserID:      f.userID,
		DisplayName: "Casey",
		Phone:       "+15551230002",
	})

	svc := NewSharingService(testSafetyConfig(), f.sessionRepo, f.contacts, f.position, f.notifier, f.stream, testLogger(t))
	f.service = svc.(*sharingService)
	f.service.now = f.clock.Now
	return f
}

func (f *sharingFixture) start(t *testing.T, duration models.DurationPreset) *models.LocationShareSession {
	t.Helper()
	session, err := f.service.StartSession(context.Background(), f.userID, []primitive.ObjectID{f.contactID}, duration)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	return session
}

func TestStartSessionRejectsEmptyRecipients(t *testing.T) {
	f := newSharingFixture(t)

	_, err := f.service.StartSession(context.Background(), f.userID, nil, models.DurationFifteenMinutes)
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}

	// Nothing may be persisted on a failed start
	if len(f.sessionRepo.sessions) != 0 {
		t.Fatal("failed start persisted a session")
	}
}

func TestStartSessionRejectsUnknownRecipients(t *testing.T) {
	f := newSharingFixture(t)

	_, err := f.service.StartSession(context.Background(), f.userID, []primitive.ObjectID{primitive.NewObjectID()}, models.DurationFifteenMinutes)
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients for unresolvable recipients, got %v", err)
	}
}

func TestStartSessionFailsWithoutPosition(t *testing.T) {
	f := newSharingFixture(t)
	f.position.setError(ErrTimeout)

	_, err := f.service.StartSession(context.Background(), f.userID, []primitive.ObjectID{f.contactID}, models.DurationOneHour)
	if !errors.Is(err, ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable, got %v", err)
	}

	if len(f.sessionRepo.sessions) != 0 {
		t.Fatal("failed start persisted a session")
	}
	if f.notifier.payloadCount() != 0 {
		t.Fatal("failed start notified recipients")
	}
}

func TestStartSessionSetsDeadlineFromPreset(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationFifteenMinutes)

	if session.ExpiresAt == nil {
		t.Fatal("15m session must carry a deadline")
	}
	want := f.clock.Now().Add(15 * time.Minute)
	if !session.ExpiresAt.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, session.ExpiresAt)
	}
	if session.ShareToken == "" || session.ShareURL == "" {
		t.Fatal("session must carry a share link")
	}

	if payload := f.notifier.lastPayload(); payload == nil || payload.Kind != "share_invite" {
		t.Fatalf("recipients were not invited: %+v", payload)
	}
}

func TestContinuousSessionHasNoDeadline(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationContinuous)
	if session.ExpiresAt != nil {
		t.Fatalf("continuous session must not expire, got deadline %v", session.ExpiresAt)
	}

	// Far future refreshes keep it live
	f.clock.Advance(1000 * time.Hour)
	refreshed, err := f.service.RefreshPosition(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("RefreshPosition failed: %v", err)
	}
	if !refreshed.IsActive {
		t.Fatal("continuous session expired")
	}
}

func TestSessionExpiresLazilyOnRefresh(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationFifteenMinutes)

	// Deadline passes with no timer anywhere; the next refresh notices.
	f.clock.Advance(16 * time.Minute)

	refreshed, err := f.service.RefreshPosition(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("RefreshPosition failed: %v", err)
	}
	if refreshed.IsActive {
		t.Fatal("overdue session still active after refresh")
	}

	stored := f.sessionRepo.stored(session.ID)
	if stored.IsActive {
		t.Fatal("expiry was not persisted")
	}
	if !f.stream.has(utils.EventShareStopped) {
		t.Fatal("expiry was not streamed")
	}

	// A second refresh on the dead session is a clean no-op
	again, err := f.service.RefreshPosition(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("refresh after expiry failed: %v", err)
	}
	if again.IsActive {
		t.Fatal("expired session came back to life")
	}
}

func TestStopSessionIsIdempotent(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationThirtyMinutes)

	if err := f.service.StopSession(context.Background(), session.ID); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if err := f.service.StopSession(context.Background(), session.ID); err != nil {
		t.Fatalf("second StopSession must be a no-op, got %v", err)
	}

	if f.stream.countOf(utils.EventShareStopped) != 1 {
		t.Fatal("idempotent stop emitted a second stop event")
	}
}

func TestNewSessionSupersedesPrior(t *testing.T) {
	f := newSharingFixture(t)

	first := f.start(t, models.DurationOneHour)
	second := f.start(t, models.DurationTwoHours)

	storedFirst := f.sessionRepo.stored(first.ID)
	if storedFirst.IsActive {
		t.Fatal("superseded session still active")
	}
	if storedFirst.SupersededBy == nil || *storedFirst.SupersededBy != second.ID {
		t.Fatalf("superseded link not recorded: %+v", storedFirst.SupersededBy)
	}

	active, err := f.sessionRepo.ListActiveByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ListActiveByUser failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("expected exactly the new session active, got %d", len(active))
	}
}

func TestRefreshKeepsStalePositionOnFixFailure(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationOneHour)
	initial := session.LastKnownPosition

	f.position.setError(ErrTimeout)

	refreshed, err := f.service.RefreshPosition(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("a failed fix must not fail the refresh: %v", err)
	}
	if !refreshed.IsActive {
		t.Fatal("failed fix stopped the session")
	}
	if !refreshed.PositionStale {
		t.Fatal("position was not flagged stale")
	}
	if refreshed.LastKnownPosition.Latitude != initial.Latitude {
		t.Fatal("stale refresh replaced the last known position")
	}
	if !f.stream.has(utils.EventPositionStale) {
		t.Fatal("stale position warning was not streamed")
	}

	// Recovery clears the flag
	f.position.setError(nil)
	recovered, err := f.service.RefreshPosition(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("RefreshPosition failed: %v", err)
	}
	if recovered.PositionStale {
		t.Fatal("stale flag survived a successful fix")
	}
}

func TestRecoverActiveSessionsClosesOverdue(t *testing.T) {
	f := newSharingFixture(t)

	overdue := f.start(t, models.DurationFifteenMinutes)
	f.clock.Advance(20 * time.Minute)
	keep := f.start(t, models.DurationContinuous)

	live, err := f.service.RecoverActiveSessions(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("RecoverActiveSessions failed: %v", err)
	}

	if len(live) != 1 || live[0].ID != keep.ID {
		t.Fatalf("expected only the continuous session to survive, got %d", len(live))
	}
	if f.sessionRepo.stored(overdue.ID).IsActive {
		t.Fatal("overdue session was not closed on recovery")
	}
}

func TestShareTokenLookupEnforcesExpiry(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationFifteenMinutes)
	f.clock.Advance(30 * time.Minute)

	viewed, err := f.service.GetSessionByToken(context.Background(), session.ShareToken)
	if err != nil {
		t.Fatalf("GetSessionByToken failed: %v", err)
	}
	if viewed.IsActive {
		t.Fatal("link viewer saw an overdue session as active")
	}
}

func TestLinkViewersReceivePositionUpdates(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationOneHour)

	if _, err := f.service.RefreshPosition(context.Background(), session.ID); err != nil {
		t.Fatalf("RefreshPosition failed: %v", err)
	}
	if f.stream.shareCountOf(session.ShareToken, utils.EventSharePosition) != 1 {
		t.Fatal("position update did not reach the share room")
	}

	f.position.setError(ErrTimeout)
	if _, err := f.service.RefreshPosition(context.Background(), session.ID); err != nil {
		t.Fatalf("RefreshPosition failed: %v", err)
	}
	if f.stream.shareCountOf(session.ShareToken, utils.EventPositionStale) != 1 {
		t.Fatal("stale warning did not reach the share room")
	}
}

func TestLinkViewersToldWhenShareEnds(t *testing.T) {
	f := newSharingFixture(t)

	stopped := f.start(t, models.DurationOneHour)
	if err := f.service.StopSession(context.Background(), stopped.ID); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if f.stream.shareCountOf(stopped.ShareToken, utils.EventShareStopped) != 1 {
		t.Fatal("stop was not published to the share room")
	}

	superseded := f.start(t, models.DurationOneHour)
	f.start(t, models.DurationTwoHours)
	if f.stream.shareCountOf(superseded.ShareToken, utils.EventShareStopped) != 1 {
		t.Fatal("supersede was not published to the old share room")
	}

	expiring := f.start(t, models.DurationFifteenMinutes)
	f.clock.Advance(16 * time.Minute)
	if _, err := f.service.RefreshPosition(context.Background(), expiring.ID); err != nil {
		t.Fatalf("RefreshPosition failed: %v", err)
	}
	if f.stream.shareCountOf(expiring.ShareToken, utils.EventShareStopped) != 1 {
		t.Fatal("expiry was not published to the share room")
	}
}

func TestZeroWindowSessionExpiresImmediately(t *testing.T) {
	f := newSharingFixture(t)

	session := f.start(t, models.DurationFifteenMinutes)

	// Force the degenerate deadline: expires the moment it started.
	f.sessionRepo.mu.Lock()
	f.sessionRepo.sessions[session.ID].ExpiresAt = &session.StartedAt
	f.sessionRepo.mu.Unlock()

	expired, err := f.service.CheckExpiry(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("CheckExpiry failed: %v", err)
	}
	if !expired {
		t.Fatal("session with an elapsed deadline must report expired")
	}
}
