package eventlogger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const MetadataOwner = "owner_id"

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

// WithMetadata merges metadata into the event, overwriting duplicate keys.
func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithOwner tags the event with the user whose data it touches, so the audit
// log can be filtered per user.
func WithOwner(userID uuid.UUID) EventOption {
	return func(e *Event) {
		e.Metadata[MetadataOwner] = userID.String()
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, eventType string, limit int) ([]Event, error)
}

// Recorder accepts events without blocking the caller. *Worker implements it.
type Recorder interface {
	Log(event Event)
}

type discard struct{}

func (discard) Log(Event) {}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}
