package interactions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Memory is an in-process Store. A single mutex makes every guarded transition linearizable.
type Memory struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.Interaction
	byWebinar map[uuid.UUID][]uuid.UUID
	nextOrder map[uuid.UUID]int
}

// NewMemory creates an empty in-memory interaction store.
func NewMemory() *Memory {
	return &Memory{
		byID:      make(map[uuid.UUID]*models.Interaction),
		byWebinar: make(map[uuid.UUID][]uuid.UUID),
		nextOrder: make(map[uuid.UUID]int),
	}
}

func (m *Memory) Create(_ context.Context, i *models.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i.ID = uuid.New()
	m.nextOrder[i.WebinarID]++
	i.OrderIndex = m.nextOrder[i.WebinarID]
	i.CreatedAt = time.Now()
	i.Status = models.StatusDraft
	i.ActivatedAt, i.EndedAt = nil, nil
	m.byID[i.ID] = i.Clone()
	m.byWebinar[i.WebinarID] = append(m.byWebinar[i.WebinarID], i.ID)
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return i.Clone(), nil
}

func (m *Memory) ListByWebinar(_ context.Context, webinarID uuid.UUID) ([]*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*models.Interaction, 0, len(m.byWebinar[webinarID]))
	for _, id := range m.byWebinar[webinarID] {
		list = append(list, m.byID[id].Clone())
	}
	sort.Slice(list, func(a, b int) bool { return list[a].OrderIndex < list[b].OrderIndex })
	return list, nil
}

func (m *Memory) Active(_ context.Context, webinarID uuid.UUID) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.activeLocked(webinarID); i != nil {
		return i.Clone(), nil
	}
	return nil, nil
}

func (m *Memory) activeLocked(webinarID uuid.UUID) *models.Interaction {
	for _, id := range m.byWebinar[webinarID] {
		if i := m.byID[id]; i.Status == models.StatusActive {
			return i
		}
	}
	return nil
}

func (m *Memory) Activate(_ context.Context, id uuid.UUID, at time.Time) (*models.Interaction, *models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.byID[id]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	if target.Status != models.StatusDraft {
		return nil, nil, models.ErrConflict
	}
	var ended *models.Interaction
	if prev := m.activeLocked(target.WebinarID); prev != nil {
		t := at
		prev.Status = models.StatusEnded
		prev.EndedAt = &t
		ended = prev.Clone()
	}
	t := at
	target.Status = models.StatusActive
	target.ActivatedAt = &t
	return target.Clone(), ended, nil
}

func (m *Memory) End(_ context.Context, id uuid.UUID, at time.Time) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if i.Status != models.StatusActive {
		return nil, models.ErrConflict
	}
	t := at
	i.Status = models.StatusEnded
	i.EndedAt = &t
	return i.Clone(), nil
}

func (m *Memory) EndActive(_ context.Context, webinarID uuid.UUID, at time.Time) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.activeLocked(webinarID)
	if i == nil {
		return nil, nil
	}
	t := at
	i.Status = models.StatusEnded
	i.EndedAt = &t
	return i.Clone(), nil
}

func (m *Memory) DeleteDraft(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	if i.Status != models.StatusDraft {
		return models.ErrConflict
	}
	delete(m.byID, id)
	ids := m.byWebinar[i.WebinarID]
	for idx, v := range ids {
		if v == id {
			m.byWebinar[i.WebinarID] = append(ids[:idx:idx], ids[idx+1:]...)
			break
		}
	}
	return nil
}
