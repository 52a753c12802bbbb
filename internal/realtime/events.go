package realtime

import (
	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Event names on the subscribe stream.
const (
	EventInteractionActivated  = "interactionActivated"
	EventInteractionEnded      = "interactionEnded"
	EventInteractionDeleted    = "interactionDeleted"
	EventTallyUpdated          = "tallyUpdated"
	EventQuestionAdded         = "questionAdded"
	EventQuestionUpdated       = "questionUpdated"
	EventReactionCountsUpdated = "reactionCountsUpdated"
	EventPresenceUpdated       = "presenceUpdated"
	EventSnapshot              = "snapshot"
	EventError                 = "error"
)

// Role decides which events a subscriber receives.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// Audience scopes an event to a set of roles.
type Audience string

const (
	AudienceAll          Audience = "all"
	AudienceHosts        Audience = "hosts"
	AudienceParticipants Audience = "participants"
)

func (a Audience) includes(r Role) bool {
	switch a {
	case AudienceHosts:
		return r == RoleHost
	case AudienceParticipants:
		return r == RoleParticipant
	}
	return true
}

// Event is one state delta for a webinar. Data is always post-mutation aggregate
// state, never a raw per-participant response.
type Event struct {
	Name     string
	Audience Audience
	Data     interface{}
}

// Publisher pushes events to a webinar's subscribers without blocking the caller.
type Publisher interface {
	Publish(webinarID uuid.UUID, ev Event)
}

// InteractionPayload is sent with interactionActivated, interactionEnded and interactionDeleted.
type InteractionPayload struct {
	WebinarID     uuid.UUID                `json:"webinar_id"`
	InteractionID uuid.UUID                `json:"interaction_id"`
	Status        models.InteractionStatus `json:"status"`
	Interaction   *models.Interaction      `json:"interaction,omitempty"`
}

// QuestionPayload is sent with questionAdded and questionUpdated.
type QuestionPayload struct {
	Question models.Question `json:"question"`
}

// ReactionCountsPayload is sent with reactionCountsUpdated.
type ReactionCountsPayload struct {
	WebinarID uuid.UUID             `json:"webinar_id"`
	Counts    models.ReactionCounts `json:"counts"`
}

// PresencePayload is sent with presenceUpdated.
type PresencePayload struct {
	WebinarID uuid.UUID `json:"webinar_id"`
	Count     int       `json:"count"`
}
