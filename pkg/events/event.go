package events

import (
	"context"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "partial").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Bus event types.
const (
	TypePartial            = "partial"
	TypeFinal              = "final"
	TypeDraftError         = "draft_error"
	TypeModelStatusUpdate  = "model_status_update"
	TypePageEmailExtracted = "pageEmailExtracted"
	TypeGmailSendSuccess   = "gmail_send_success"
	TypeGmailSendError     = "gmail_send_error"
	TypeClearTokenDone     = "clearCachedToken_done"
	TypeClearTokenError    = "clearCachedToken_error"
	TypeCommandAccepted    = "command_accepted"
)

// BusEvent is the wire shape of every event published to listeners.
// Fields not relevant to a type are omitted from JSON.
type BusEvent struct {
	Type         string    `json:"type"`
	Command      string    `json:"command,omitempty"`
	GenerationID uint64    `json:"generation_id,omitempty"`
	Content      string    `json:"content,omitempty"`
	Error        string    `json:"error,omitempty"`
	Available    *bool     `json:"available,omitempty"`
	Body         string    `json:"body,omitempty"`
	SenderName   string    `json:"senderName,omitempty"`
	SenderEmail  string    `json:"senderEmail,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (e BusEvent) EventType() string {
	return e.Type
}

func (e BusEvent) Payload() map[string]interface{} {
	data := map[string]interface{}{"type": e.Type}
	if e.Command != "" {
		data["command"] = e.Command
	}
	if e.GenerationID != 0 {
		data["generation_id"] = e.GenerationID
	}
	if e.Content != "" {
		data["content"] = e.Content
	}
	if e.Error != "" {
		data["error"] = e.Error
	}
	if e.Available != nil {
		data["available"] = *e.Available
	}
	if e.Body != "" {
		data["body"] = e.Body
	}
	if e.SenderName != "" {
		data["senderName"] = e.SenderName
	}
	if e.SenderEmail != "" {
		data["senderEmail"] = e.SenderEmail
	}
	return data
}

func (e BusEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Terminal reports whether e ends a generation attempt.
func (e BusEvent) Terminal() bool {
	return e.Type == TypeFinal || e.Type == TypeDraftError
}

func Partial(id uint64, delta string) BusEvent {
	return BusEvent{Type: TypePartial, GenerationID: id, Content: delta, OccurredAt: time.Now()}
}

func Final(id uint64, content string) BusEvent {
	return BusEvent{Type: TypeFinal, GenerationID: id, Content: content, OccurredAt: time.Now()}
}

func DraftError(id uint64, msg string) BusEvent {
	return BusEvent{Type: TypeDraftError, GenerationID: id, Error: msg, OccurredAt: time.Now()}
}

func ModelStatus(available bool) BusEvent {
	return BusEvent{Type: TypeModelStatusUpdate, Available: &available, OccurredAt: time.Now()}
}

// Accepted acknowledges a command to the client that sent it. For
// generateDraft it carries the generation id the attempt will use.
func Accepted(cmdType string, id uint64) BusEvent {
	return BusEvent{Type: TypeCommandAccepted, Command: cmdType, GenerationID: id, OccurredAt: time.Now()}
}

func Simple(eventType string) BusEvent {
	return BusEvent{Type: eventType, OccurredAt: time.Now()}
}

func Failure(eventType, msg string) BusEvent {
	return BusEvent{Type: eventType, Error: msg, OccurredAt: time.Now()}
}

// Publisher delivers events to whoever is listening right now.
//
// Delivery is best effort: there is no acknowledgement and events for a
// listener that has gone away or cannot keep up are dropped silently. Publish
// may wait for the in-process topic to hand the event on and for mirrors such
// as NATS to accept it, but not for any bus client to read it. Consumers must
// tolerate duplicates and, across generations, out-of-order events (see
// GenerationID).
type Publisher interface {
	Publish(ctx context.Context, event BusEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event BusEvent)

func (f PublisherFunc) Publish(ctx context.Context, event BusEvent) {
	f(ctx, event)
}
