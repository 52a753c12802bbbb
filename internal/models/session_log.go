package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ParticipantSession is one participant's presence in a webinar, from first connect
// until the disconnect grace window expires.
type ParticipantSession struct {
	ID             uuid.UUID  `json:"id"`
	WebinarID      uuid.UUID  `json:"webinar_id"`
	ParticipantID  uuid.UUID  `json:"participant_id"`
	ConnectedAt    time.Time  `json:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// TallySnapshot is the final tally of an ended interaction, kept for the timeline view.
type TallySnapshot struct {
	InteractionID uuid.UUID       `json:"interaction_id"`
	WebinarID     uuid.UUID       `json:"webinar_id"`
	Tally         json.RawMessage `json:"tally"`
	RecordedAt    time.Time       `json:"recorded_at"`
}
