package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// EnvelopeVersion is the current PayloadEnvelope schema version.
const EnvelopeVersion = 1

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uuid.UUID      `json:"userId"`
	Role   enums.UserRole `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// published verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ParsedEventID returns the envelope event id as a UUID.
func (e PayloadEnvelope) ParsedEventID() (uuid.UUID, error) {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid event id %q: %w", e.EventID, err)
	}
	return id, nil
}

// ErrEnvelopeTooNew marks an envelope written by a newer producer.
var ErrEnvelopeTooNew = errors.New("envelope version not supported")

// CheckVersion rejects envelopes newer than EnvelopeVersion. Version 0 means
// the producer left it unset and is read as the current version.
func (e PayloadEnvelope) CheckVersion() error {
	if e.Version > EnvelopeVersion {
		return fmt.Errorf("%w: %d is newer than %d", ErrEnvelopeTooNew, e.Version, EnvelopeVersion)
	}
	return nil
}

// DecodeEnvelope parses a message body into an envelope, checks the fields
// consumers depend on and returns the parsed event id.
func DecodeEnvelope(body []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PayloadEnvelope{}, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.CheckVersion(); err != nil {
		return PayloadEnvelope{}, uuid.Nil, err
	}
	eventID, err := env.ParsedEventID()
	if err != nil {
		return PayloadEnvelope{}, uuid.Nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return PayloadEnvelope{}, uuid.Nil, errors.New("envelope data missing")
	}
	return env, eventID, nil
}
