package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
)

const logTimeout = 5 * time.Second

// SessionRecorder persists join and leave times.
type SessionRecorder interface {
	LogJoin(ctx context.Context, webinarID, participantID uuid.UUID, at time.Time) error
	LogLeave(ctx context.Context, webinarID, participantID uuid.UUID, at time.Time) error
}

// SessionStore records presence windows and reads them back for hosts.
type SessionStore interface {
	SessionRecorder
	// List returns a webinar's sessions, newest first.
	List(ctx context.Context, webinarID uuid.UUID) ([]models.ParticipantSession, error)
	// DistinctParticipants counts everyone who joined the webinar at least once.
	DistinctParticipants(ctx context.Context, webinarID uuid.UUID) (int, error)
}

// NewHooks publishes presenceUpdated on every change and, when rec is set, writes the
// session log in the background.
func NewHooks(pub realtime.Publisher, rec SessionRecorder, logger *zap.Logger) Hooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := Hooks{
		OnChange: func(webinarID uuid.UUID, count int) {
			pub.Publish(webinarID, realtime.Event{
				Name:     realtime.EventPresenceUpdated,
				Audience: realtime.AudienceAll,
				Data:     realtime.PresencePayload{WebinarID: webinarID, Count: count},
			})
		},
	}
	if rec == nil {
		return h
	}
	// Writes run in the background but in hook order, so a leave never lands before its join.
	var mu sync.Mutex
	prev := make(chan struct{})
	close(prev)
	record := func(op string, fn func(context.Context, uuid.UUID, uuid.UUID, time.Time) error, webinarID, participantID uuid.UUID) {
		at := time.Now()
		mu.Lock()
		wait, done := prev, make(chan struct{})
		prev = done
		mu.Unlock()
		go func() {
			defer close(done)
			<-wait
			ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
			defer cancel()
			if err := fn(ctx, webinarID, participantID, at); err != nil {
				logger.Warn("session log write failed",
					zap.String("op", op),
					zap.String("webinar_id", webinarID.String()),
					zap.String("participant_id", participantID.String()),
					zap.Error(err))
			}
		}()
	}
	h.OnJoin = func(webinarID, participantID uuid.UUID) {
		record("join", rec.LogJoin, webinarID, participantID)
	}
	h.OnLeave = func(webinarID, participantID uuid.UUID) {
		record("leave", rec.LogLeave, webinarID, participantID)
	}
	return h
}
