// Package events fans device-session state changes out to subscribers:
// websocket clients of the session and, optionally, an AMQP exchange.
package events

import (
	"context"
	"errors"
	"time"
)

// Type names a state change
type Type string

const (
	TypeSession      Type = "session"
	TypeLocation     Type = "location"
	TypeConnectivity Type = "connectivity"
	TypeSuggestions  Type = "suggestions"
	TypePOI          Type = "poi"
	TypeChat         Type = "chat"
	TypeVoice        Type = "voice"
	TypeOverlay      Type = "overlay"
	TypeClosed       Type = "closed"
)

// Event is one state change of a device session
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"session_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every publisher in order, continuing past failures
type Fanout []Publisher

// Publish implements Publisher
func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
