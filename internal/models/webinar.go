package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarStatus is the live-session state of a webinar.
type WebinarStatus string

const (
	WebinarScheduled WebinarStatus = "scheduled"
	WebinarLive      WebinarStatus = "live"
	WebinarEnded     WebinarStatus = "ended"
)

// Webinar is the slice of webinar metadata the interaction engine needs.
// Title, schedule and embed URL live in the webinar CRUD service.
type Webinar struct {
	ID                 uuid.UUID     `json:"id"`
	HostID             uuid.UUID     `json:"host_id"`
	Status             WebinarStatus `json:"status"`
	AllowLateResponses bool          `json:"allow_late_responses"`
	StartedAt          *time.Time    `json:"started_at,omitempty"`
	EndedAt            *time.Time    `json:"ended_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}
