package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeVersion is the newest envelope layout this build writes and reads.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event. Anonymous shopper events carry no actor.
type ActorRef struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and sent as
// the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// DecodeEnvelope parses raw and refuses layouts newer than EnvelopeVersion.
// Version 0 is read as 1.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version == 0 {
		env.Version = 1
	}
	if env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("envelope version %d is newer than supported %d", env.Version, EnvelopeVersion)
	}
	return env, nil
}
