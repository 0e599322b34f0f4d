// Package events defines the payloads published on the pub/sub brokers.
package events

import "time"

// SessionEventType identifies a session lifecycle change.
type SessionEventType string

// Session event types.
const (
	SessionEventCreated       SessionEventType = "created"
	SessionEventSwitched      SessionEventType = "switched"
	SessionEventDeleted       SessionEventType = "deleted"
	SessionEventRestored      SessionEventType = "restored"
	SessionEventRenamed       SessionEventType = "renamed"
	SessionEventUpdated       SessionEventType = "updated"
	SessionEventResponseAdded SessionEventType = "response_added"
	SessionEventCleared       SessionEventType = "cleared"
	SessionEventSidebar       SessionEventType = "sidebar"
	SessionEventModelChanged  SessionEventType = "model_changed"
)

// SessionEvent describes a change made by the lifecycle controller.
type SessionEvent struct {
	SessionID string           `json:"sessionId,omitempty"`
	Title     string           `json:"title,omitempty"`
	Type      SessionEventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`

	// Optional fields
	Query       string `json:"query,omitempty"`       // ResponseAdded
	Summary     string `json:"summary,omitempty"`     // ResponseAdded
	Failed      bool   `json:"failed,omitempty"`      // ResponseAdded
	SidebarOpen bool   `json:"sidebarOpen,omitempty"` // Sidebar
	Model       string `json:"model,omitempty"`       // ModelChanged
}

func newSessionEvent(typ SessionEventType, id, title string) SessionEvent {
	return SessionEvent{
		SessionID: id,
		Title:     title,
		Type:      typ,
		Timestamp: time.Now(),
	}
}

// NewSessionCreatedEvent creates a session created event.
func NewSessionCreatedEvent(id, title string) SessionEvent {
	return newSessionEvent(SessionEventCreated, id, title)
}

// NewSessionSwitchedEvent creates a session switched event.
func NewSessionSwitchedEvent(id, title string) SessionEvent {
	return newSessionEvent(SessionEventSwitched, id, title)
}

// NewSessionDeletedEvent creates a session deleted event.
func NewSessionDeletedEvent(id, title string) SessionEvent {
	return newSessionEvent(SessionEventDeleted, id, title)
}

// NewSessionRestoredEvent creates an undo-delete event.
func NewSessionRestoredEvent(id, title string) SessionEvent {
	return newSessionEvent(SessionEventRestored, id, title)
}

// NewSessionRenamedEvent creates a session renamed event.
func NewSessionRenamedEvent(id, title string) SessionEvent {
	return newSessionEvent(SessionEventRenamed, id, title)
}

// NewSessionUpdatedEvent creates a generic field update event.
func NewSessionUpdatedEvent(id, title string) SessionEvent {
	return newSessionEvent(SessionEventUpdated, id, title)
}

// NewSessionClearedEvent is published after a bulk delete or reset.
func NewSessionClearedEvent() SessionEvent {
	return newSessionEvent(SessionEventCleared, "", "")
}

// NewResponseAddedEvent creates an event for a history entry appended to a session.
func NewResponseAddedEvent(sessionID, query, summary string, failed bool) SessionEvent {
	e := newSessionEvent(SessionEventResponseAdded, sessionID, "")
	e.Query = query
	e.Summary = summary
	e.Failed = failed
	return e
}

// NewSidebarEvent asks views to open or close the session sidebar.
func NewSidebarEvent(open bool) SessionEvent {
	e := newSessionEvent(SessionEventSidebar, "", "")
	e.SidebarOpen = open
	return e
}

// NewModelChangedEvent reports a new selected model.
func NewModelChangedEvent(model string) SessionEvent {
	e := newSessionEvent(SessionEventModelChanged, "", "")
	e.Model = model
	return e
}
