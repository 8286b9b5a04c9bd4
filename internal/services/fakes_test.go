package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSOSRepo struct {
	mu         sync.Mutex
	events     map[primitive.ObjectID]*models.SOSEvent
	failWrites bool
	upserts    int
}

func newFakeSOSRepo() *fakeSOSRepo {
	return &fakeSOSRepo{events: make(map[primitive.ObjectID]*models.SOSEvent)}
}

func (r *fakeSOSRepo) Upsert(ctx context.Context, event *models.SOSEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if r.failWrites {
		return errors.New("store unavailable")
	}
	clone := *event
	r.events[event.ID] = &clone
	return nil
}

func (r *fakeSOSRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *event
	return &clone, nil
}

func (r *fakeSOSRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("store unavailable")
	}
	return nil
}

func (r *fakeSOSRepo) GetLiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.SOSEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.UserID == userID && event.State.IsLive() {
			clone := *event
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSOSRepo) UpdateState(ctx context.Context, id primitive.ObjectID, state models.SOSState, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("store unavailable")
	}
	if event, ok := r.events[id]; ok {
		event.State = state
	}
	return nil
}

func (r *fakeSOSRepo) AddNotifiedContact(ctx context.Context, id primitive.ObjectID, contact models.NotifiedContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event, ok := r.events[id]; ok {
		event.ContactsNotified = append(event.ContactsNotified, contact)
	}
	return nil
}

func (r *fakeSOSRepo) AddMediaAttachment(ctx context.Context, id primitive.ObjectID, media models.MediaAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event, ok := r.events[id]; ok {
		event.MediaAttachments = append(event.MediaAttachments, media)
	}
	return nil
}

func (r *fakeSOSRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SOSEvent
	for _, event := range r.events {
		if event.UserID == userID {
			clone := *event
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSOSRepo) stored(id primitive.ObjectID) *models.SOSEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil
	}
	clone := *event
	return &clone
}

type fakeSessionRepo struct {
	mu         sync.Mutex
	sessions   map[primitive.ObjectID]*models.LocationShareSession
	failWrites bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[primitive.ObjectID]*models.LocationShareSession)}
}

func (r *fakeSessionRepo) Upsert(ctx context.Context, session *models.LocationShareSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("store unavailable")
	}
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.LocationShareSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *session
	return &clone, nil
}

func (r *fakeSessionRepo) GetByShareToken(ctx context.Context, token string) (*models.LocationShareSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.ShareToken == token {
			clone := *session
			return &clone, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeSessionRepo) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.LocationShareSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LocationShareSession
	for _, session := range r.sessions {
		if session.UserID == userID && session.IsActive {
			clone := *session
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Deactivate(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("store unavailable")
	}
	if session, ok := r.sessions[id]; ok && session.IsActive {
		session.IsActive = false
		session.StoppedAt = &at
	}
	return nil
}

func (r *fakeSessionRepo) MarkSuperseded(ctx context.Context, id primitive.ObjectID, successor primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[id]; ok {
		session.IsActive = false
		session.StoppedAt = &at
		session.SupersededBy = &successor
	}
	return nil
}

func (r *fakeSessionRepo) UpdatePosition(ctx context.Context, id primitive.ObjectID, position models.Position, stale bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errors.New("store unavailable")
	}
	if session, ok := r.sessions[id]; ok {
		session.LastKnownPosition = position
		session.PositionStale = stale
	}
	return nil
}

func (r *fakeSessionRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.LocationShareSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LocationShareSession
	for _, session := range r.sessions {
		if session.UserID == userID {
			clone := *session
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) stored(id primitive.ObjectID) *models.LocationShareSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	clone := *session
	return &clone
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[primitive.ObjectID]*models.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[primitive.ObjectID]*models.Contact)}
}

func (r *fakeContactRepo) add(contact *models.Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID] = contact
}

func (r *fakeContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	r.add(contact)
	return nil
}

func (r *fakeContactRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return contact, nil
}

func (r *fakeContactRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeContactRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	return nil
}

func (r *fakeContactRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Contact
	for _, contact := range r.contacts {
		if contact.UserID == userID {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) GetByIDs(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Contact
	for _, id := range ids {
		if contact, ok := r.contacts[id]; ok && contact.UserID == userID {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) ListEmergencyByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Contact
	for _, contact := range r.contacts {
		if contact.UserID == userID && contact.IsEmergency {
			out = append(out, contact)
		}
	}
	return out, nil
}

type fakePositioning struct {
	mu       sync.Mutex
	position *models.Position
	err      error
}

func (p *fakePositioning) GetCurrentPosition(ctx context.Context, userID primitive.ObjectID, timeout time.Duration) (*models.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	clone := *p.position
	return &clone, nil
}

func (p *fakePositioning) ReportPosition(ctx context.Context, userID primitive.ObjectID, position models.Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = &position
	return nil
}

func (p *fakePositioning) setError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type fakeTelephony struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (t *fakeTelephony) InitiateEmergencyCall(ctx context.Context, userID primitive.ObjectID, sosEventID primitive.ObjectID, number string) (*models.CallLog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	t.calls = append(t.calls, number)
	return &models.CallLog{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		SOSEventID: &sosEventID,
		ToNumber:   number,
		Status:     models.CallStatusInitiated,
	}, nil
}

func (t *fakeTelephony) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []*AlertPayload
	contacts [][]*models.Contact
}

func (n *fakeNotifier) NotifyRecipients(ctx context.Context, contacts []*models.Contact, payload *AlertPayload) []models.NotifiedContact {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	n.contacts = append(n.contacts, contacts)

	notified := make([]models.NotifiedContact, 0, len(contacts))
	for _, contact := range contacts {
		notified = append(notified, models.NotifiedContact{
			ContactID:    contact.ID,
			Name:         contact.DisplayName,
			Phone:        contact.Phone,
			NotifyMethod: "sms",
			NotifiedAt:   time.Now(),
			Delivered:    true,
		})
	}
	return notified
}

func (n *fakeNotifier) lastPayload() *AlertPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.payloads) == 0 {
		return nil
	}
	return n.payloads[len(n.payloads)-1]
}

func (n *fakeNotifier) payloadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads)
}

type recordedEvent struct {
	userID    primitive.ObjectID
	eventType string
	data      map[string]interface{}
}

type recordedShareEvent struct {
	token     string
	eventType string
	data      map[string]interface{}
}

type recordingStream struct {
	mu          sync.Mutex
	events      []recordedEvent
	shareEvents []recordedShareEvent
}

func (s *recordingStream) SendUserNotification(userID primitive.ObjectID, eventType string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{userID: userID, eventType: eventType, data: data})
}

func (s *recordingStream) SendShareUpdate(token string, eventType string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shareEvents = append(s.shareEvents, recordedShareEvent{token: token, eventType: eventType, data: data})
}

func (s *recordingStream) shareCountOf(token, eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.shareEvents {
		if e.token == token && e.eventType == eventType {
			count++
		}
	}
	return count
}

func (s *recordingStream) countOf(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.events {
		if e.eventType == eventType {
			count++
		}
	}
	return count
}

func (s *recordingStream) has(eventType string) bool {
	return s.countOf(eventType) > 0
}
