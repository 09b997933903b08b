package services

import (
	"bytes"
	"encoding/json"

	"github.com/IANDYI/tracking-sync/internal/core/domain"
)

// Queues consumed by the subscription task. This is the closed set of
// recognized event kinds.
const (
	QueuePhysicalActivitySync = "physicalactivities.sync"
	QueueSleepSync            = "sleeps.sync"
	QueueWeightSync           = "weights.sync"
	QueueLogSync              = "logs.sync"
	QueueUserDelete           = "users.delete"
	QueueInstitutionDelete    = "institutions.delete"
)

// Recognized event names carried in the envelope's event_name field.
const (
	EventPhysicalActivitySave = "PhysicalActivitySaveEvent"
	EventSleepSave            = "SleepSaveEvent"
	EventWeightSave           = "WeightSaveEvent"
	EventLogSave              = "LogSaveEvent"
	EventUserDelete           = "UserDeleteEvent"
	EventInstitutionDelete    = "InstitutionDeleteEvent"
)

// Envelope is the wire shape of a cross-service event: routing metadata plus
// exactly one entity payload, which may be a single object or an array.
type Envelope struct {
	EventName        string          `json:"event_name"`
	Timestamp        string          `json:"timestamp"`
	PhysicalActivity json.RawMessage `json:"physicalactivity,omitempty"`
	Sleep            json.RawMessage `json:"sleep,omitempty"`
	Weight           json.RawMessage `json:"weight,omitempty"`
	Log              json.RawMessage `json:"log,omitempty"`
	User             json.RawMessage `json:"user,omitempty"`
	Institution      json.RawMessage `json:"institution,omitempty"`
}

// subjectRef is the payload of a delete-class event: the subject whose
// records must be removed.
type subjectRef struct {
	ID string `json:"id"`
}

// decodeEnvelope parses a delivery body and checks its routing fields.
func decodeEnvelope(body []byte, wantEvent string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.MalformedEnvelopeError{Description: err.Error()}
	}
	if env.EventName == "" {
		return nil, &domain.MalformedEnvelopeError{Description: "event_name is required"}
	}
	if env.EventName != wantEvent {
		return nil, &domain.MalformedEnvelopeError{Description: "unexpected event_name " + env.EventName}
	}
	return &env, nil
}

// splitPayload normalizes an entity payload into its candidate elements: a
// JSON array yields one element per item, a single object yields itself.
func splitPayload(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &domain.MalformedEnvelopeError{Description: "entity payload is required"}
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &domain.MalformedEnvelopeError{Description: err.Error()}
		}
		return items, nil
	}
	return []json.RawMessage{trimmed}, nil
}
