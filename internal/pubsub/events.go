// Package pubsub provides typed, in-process publish/subscribe brokers.
package pubsub

import (
	"context"
	"time"
)

// EventType is the coarse kind of change an event reports. Payloads carry
// the domain-specific detail.
type EventType string

// Event types.
const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is a published payload with metadata.
type Event[T any] struct { //nolint:govet // fieldalignment: preserving logical field order
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Publisher publishes events.
type Publisher[T any] interface {
	Publish(EventType, T)
}

// Subscriber subscribes to events.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}
