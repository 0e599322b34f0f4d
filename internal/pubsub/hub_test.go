package pubsub

import (
	"context"
	"strings"
	"testing"

	"github.com/guilhermegouw/voxchat/internal/events"
)

func TestHub(t *testing.T) {
	t.Run("brokers are registered", func(t *testing.T) {
		hub := NewHub()
		defer hub.Shutdown()

		got := hub.Registry().List()
		if len(got) != 2 || got[0] != "session" || got[1] != "voice" {
			t.Errorf("List() = %v, want [session voice]", got)
		}
		if _, ok := hub.Registry().Get("voice"); !ok {
			t.Error("voice broker not found")
		}
	})

	t.Run("session events flow", func(t *testing.T) {
		hub := NewHub()
		defer hub.Shutdown()

		ch := hub.Session.Subscribe(context.Background())
		hub.Session.Publish(EventCreated, events.NewSessionCreatedEvent("s1", "New Chat"))

		if e := receive(t, ch); e.Payload.SessionID != "s1" {
			t.Errorf("SessionID = %q, want s1", e.Payload.SessionID)
		}
		if !strings.Contains(hub.DebugString(), "session: subs=1") {
			t.Errorf("DebugString() = %q", hub.DebugString())
		}
	})

	t.Run("shutdown closes brokers and done", func(t *testing.T) {
		hub := NewHub()
		hub.Shutdown()
		hub.Shutdown()

		if !hub.IsShutdown() || !hub.Session.IsShutdown() || !hub.Voice.IsShutdown() {
			t.Error("hub and brokers should be shut down")
		}
		select {
		case <-hub.Done():
		default:
			t.Error("Done() should be closed")
		}
	})
}
