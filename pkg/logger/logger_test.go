package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newCaptureLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	log, err := NewLogger(&Config{Level: InfoLevel, Format: "json"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)
	return log, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output was not JSON: %v", err)
	}
	return entry
}

func TestWithEventIDAddsHexField(t *testing.T) {
	log, buf := newCaptureLogger(t)
	eventID := primitive.NewObjectID()

	log.WithEventID(eventID).Info("sos activated")

	entry := lastEntry(t, buf)
	if entry["event_id"] != eventID.Hex() {
		t.Fatalf("event_id = %v, want %s", entry["event_id"], eventID.Hex())
	}
}

func TestWithSessionIDAddsHexField(t *testing.T) {
	log, buf := newCaptureLogger(t)
	sessionID := primitive.NewObjectID()

	log.WithSessionID(sessionID).Info("share stopped")

	entry := lastEntry(t, buf)
	if entry["session_id"] != sessionID.Hex() {
		t.Fatalf("session_id = %v, want %s", entry["session_id"], sessionID.Hex())
	}
}

func TestLogSafetyEventCarriesTypeAndDetails(t *testing.T) {
	log, buf := newCaptureLogger(t)
	eventID := primitive.NewObjectID()

	log.LogSafetyEvent(eventID, "sos_activated", map[string]interface{}{
		"has_location": true,
	})

	entry := lastEntry(t, buf)
	if entry["type"] != "safety_event" {
		t.Fatalf("type = %v, want safety_event", entry["type"])
	}
	if entry["event"] != "sos_activated" {
		t.Fatalf("event = %v, want sos_activated", entry["event"])
	}
	if entry["event_id"] != eventID.Hex() {
		t.Fatalf("event_id = %v, want %s", entry["event_id"], eventID.Hex())
	}
	if entry["has_location"] != true {
		t.Fatalf("details were not merged: %v", entry)
	}
}
