package responses

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

type responseKey struct {
	interaction uuid.UUID
	participant uuid.UUID
}

// Memory is an in-process Store. It has no view of interaction status, so
// requireActive is left to the caller's status hold.
type Memory struct {
	mu        sync.RWMutex
	responses map[responseKey]*models.Response
	byInter   map[uuid.UUID][]responseKey
	snapshots map[uuid.UUID]*models.TallySnapshot
}

// NewMemory creates an empty in-memory response store.
func NewMemory() *Memory {
	return &Memory{
		responses: make(map[responseKey]*models.Response),
		byInter:   make(map[uuid.UUID][]responseKey),
		snapshots: make(map[uuid.UUID]*models.TallySnapshot),
	}
}

func copyResponse(r *models.Response) *models.Response {
	c := *r
	if r.Answer.Value != nil {
		v := *r.Answer.Value
		c.Answer.Value = &v
	}
	if r.Correct != nil {
		b := *r.Correct
		c.Correct = &b
	}
	return &c
}

func (m *Memory) Insert(_ context.Context, r *models.Response, _ bool) (*models.Response, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := responseKey{r.InteractionID, r.ParticipantID}
	if existing, ok := m.responses[k]; ok {
		return copyResponse(existing), false, nil
	}
	m.responses[k] = copyResponse(r)
	m.byInter[r.InteractionID] = append(m.byInter[r.InteractionID], k)
	return copyResponse(r), true, nil
}

func (m *Memory) Upsert(_ context.Context, r *models.Response) (*models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := responseKey{r.InteractionID, r.ParticipantID}
	if existing, ok := m.responses[k]; ok {
		existing.Answer = copyResponse(r).Answer
		existing.SubmittedAt = r.SubmittedAt
		return copyResponse(existing), nil
	}
	m.responses[k] = copyResponse(r)
	m.byInter[r.InteractionID] = append(m.byInter[r.InteractionID], k)
	return copyResponse(r), nil
}

func (m *Memory) Get(_ context.Context, interactionID, participantID uuid.UUID) (*models.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.responses[responseKey{interactionID, participantID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyResponse(r), nil
}

func (m *Memory) List(_ context.Context, interactionID uuid.UUID) ([]models.Response, error) {
	m.mu.RLock()
	keys := m.byInter[interactionID]
	list := make([]models.Response, 0, len(keys))
	for _, k := range keys {
		list = append(list, *copyResponse(m.responses[k]))
	}
	m.mu.RUnlock()
	sort.SliceStable(list, func(a, b int) bool { return list[a].SubmittedAt.Before(list[b].SubmittedAt) })
	return list, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, s *models.TallySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.snapshots[s.InteractionID] = &c
	return nil
}

func (m *Memory) GetSnapshot(_ context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[interactionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *s
	return &c, nil
}
