package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// MemorySessionLog is an in-process SessionStore.
type MemorySessionLog struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]*models.ParticipantSession
}

// NewMemorySessionLog creates an empty session log.
func NewMemorySessionLog() *MemorySessionLog {
	return &MemorySessionLog{sessions: make(map[uuid.UUID][]*models.ParticipantSession)}
}

func (m *MemorySessionLog) LogJoin(_ context.Context, webinarID, participantID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[webinarID] = append(m.sessions[webinarID], &models.ParticipantSession{
		ID:            uuid.New(),
		WebinarID:     webinarID,
		ParticipantID: participantID,
		ConnectedAt:   at,
	})
	return nil
}

func (m *MemorySessionLog) LogLeave(_ context.Context, webinarID, participantID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open *models.ParticipantSession
	for _, s := range m.sessions[webinarID] {
		if s.ParticipantID == participantID && s.DisconnectedAt == nil &&
			(open == nil || s.ConnectedAt.After(open.ConnectedAt)) {
			open = s
		}
	}
	if open != nil {
		t := at
		open.DisconnectedAt = &t
	}
	return nil
}

func (m *MemorySessionLog) List(_ context.Context, webinarID uuid.UUID) ([]models.ParticipantSession, error) {
	m.mu.Lock()
	list := make([]models.ParticipantSession, 0, len(m.sessions[webinarID]))
	for _, s := range m.sessions[webinarID] {
		c := *s
		if s.DisconnectedAt != nil {
			t := *s.DisconnectedAt
			c.DisconnectedAt = &t
		}
		list = append(list, c)
	}
	m.mu.Unlock()
	sort.SliceStable(list, func(a, b int) bool { return list[a].ConnectedAt.After(list[b].ConnectedAt) })
	return list, nil
}

func (m *MemorySessionLog) DistinctParticipants(_ context.Context, webinarID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	for _, s := range m.sessions[webinarID] {
		seen[s.ParticipantID] = struct{}{}
	}
	return len(seen), nil
}
