package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSessionEventTypesDistinct(t *testing.T) {
	types := []SessionEventType{
		SessionEventCreated,
		SessionEventSwitched,
		SessionEventDeleted,
		SessionEventRestored,
		SessionEventRenamed,
		SessionEventUpdated,
		SessionEventResponseAdded,
		SessionEventCleared,
		SessionEventSidebar,
		SessionEventModelChanged,
	}

	seen := make(map[SessionEventType]bool)
	for _, typ := range types {
		if seen[typ] {
			t.Errorf("duplicate event type: %s", typ)
		}
		seen[typ] = true
		if typ == "" {
			t.Error("event type should have non-empty string value")
		}
	}
}

func TestSessionEventConstructors(t *testing.T) {
	before := time.Now()

	tests := []struct {
		name  string
		event SessionEvent
		typ   SessionEventType
		id    string
	}{
		{"created", NewSessionCreatedEvent("s1", "New Chat"), SessionEventCreated, "s1"},
		{"switched", NewSessionSwitchedEvent("s2", "Dogs"), SessionEventSwitched, "s2"},
		{"deleted", NewSessionDeletedEvent("s3", "Cats"), SessionEventDeleted, "s3"},
		{"restored", NewSessionRestoredEvent("s3", "Cats"), SessionEventRestored, "s3"},
		{"renamed", NewSessionRenamedEvent("s4", "Birds"), SessionEventRenamed, "s4"},
		{"cleared", NewSessionClearedEvent(), SessionEventCleared, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.event.Type != tt.typ {
				t.Errorf("Type = %q, want %q", tt.event.Type, tt.typ)
			}
			if tt.event.SessionID != tt.id {
				t.Errorf("SessionID = %q, want %q", tt.event.SessionID, tt.id)
			}
			if tt.event.Timestamp.Before(before) {
				t.Error("timestamp should not precede test start")
			}
		})
	}
}

func TestNewResponseAddedEvent(t *testing.T) {
	e := NewResponseAddedEvent("s1", "hi", "hello", true)
	if e.Query != "hi" || e.Summary != "hello" || !e.Failed {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestSessionEventJSON(t *testing.T) {
	data, err := json.Marshal(NewSidebarEvent(true))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"type":"sidebar"`) || !strings.Contains(out, `"sidebarOpen":true`) {
		t.Errorf("json = %s", out)
	}
	if strings.Contains(out, "sessionId") {
		t.Errorf("empty sessionId should be omitted: %s", out)
	}
}

func TestVoiceEvents(t *testing.T) {
	if e := NewListeningEvent(true); e.Type != VoiceEventStarted || !e.Listening {
		t.Errorf("NewListeningEvent(true) = %+v", e)
	}
	if e := NewListeningEvent(false); e.Type != VoiceEventStopped || e.Listening {
		t.Errorf("NewListeningEvent(false) = %+v", e)
	}
	if e := NewSpeechEndedEvent("a", true); !e.Cancelled || e.Text != "a" {
		t.Errorf("NewSpeechEndedEvent() = %+v", e)
	}
	if e := NewCommandEvent("read", nil, true); e.Intent != "read" || !e.Handled {
		t.Errorf("NewCommandEvent() = %+v", e)
	}
}
