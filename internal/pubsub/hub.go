package pubsub

import (
	"github.com/guilhermegouw/voxchat/internal/events"
)

// Hub owns the application's brokers.
type Hub struct { //nolint:govet // fieldalignment: preserving logical field order
	Session *Broker[events.SessionEvent]
	Voice   *Broker[events.VoiceEvent]

	registry *Registry
	done     chan struct{}
}

// NewHub creates a Hub with every broker initialized and registered.
func NewHub() *Hub {
	h := &Hub{
		Session:  NewBroker[events.SessionEvent]("session"),
		Voice:    NewBroker[events.VoiceEvent]("voice"),
		registry: NewRegistry(),
		done:     make(chan struct{}),
	}

	h.registry.Register("session", h.Session)
	h.registry.Register("voice", h.Voice)

	return h
}

// Shutdown shuts down every broker. Safe to call more than once.
func (h *Hub) Shutdown() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}

	h.Session.Shutdown()
	h.Voice.Shutdown()
}

// IsShutdown reports whether Shutdown has been called.
func (h *Hub) IsShutdown() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Done is closed when the hub shuts down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Registry returns the broker registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// DebugString summarizes every broker for the debug log.
func (h *Hub) DebugString() string {
	return h.registry.DebugString()
}
