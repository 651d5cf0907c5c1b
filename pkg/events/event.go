package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "INGESTION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic carrier used when reconstructing events off the
// wire, where only the subject and raw payload are known.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// IngestionCompleted is emitted when a document finished embedding into a
// session's index. The notification path fans it out to the owner's
// connected clients.
type IngestionCompleted struct {
	UserId     uuid.UUID
	SessionId  uuid.UUID
	SourceId   string
	ChunkCount int
	OccurredAt time.Time
}

func (e IngestionCompleted) EventType() string {
	return "INGESTION_COMPLETED"
}

func (e IngestionCompleted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserId.String(),
		"session_id":  e.SessionId.String(),
		"source_id":   e.SourceId,
		"chunk_count": e.ChunkCount,
	}
}

func (e IngestionCompleted) Timestamp() time.Time {
	return e.OccurredAt
}

// SessionDeleted is emitted after a session's history and index are removed.
type SessionDeleted struct {
	UserId     uuid.UUID
	SessionId  uuid.UUID
	OccurredAt time.Time
}

func (e SessionDeleted) EventType() string {
	return "SESSION_DELETED"
}

func (e SessionDeleted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserId.String(),
		"session_id": e.SessionId.String(),
	}
}

func (e SessionDeleted) Timestamp() time.Time {
	return e.OccurredAt
}
