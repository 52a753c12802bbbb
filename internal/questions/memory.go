package questions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Memory is an in-process Store.
type Memory struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*models.Question
	byWebinar map[uuid.UUID][]uuid.UUID
	upvoters  map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewMemory creates an empty in-memory question store.
func NewMemory() *Memory {
	return &Memory{
		questions: make(map[uuid.UUID]*models.Question),
		byWebinar: make(map[uuid.UUID][]uuid.UUID),
		upvoters:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (m *Memory) Create(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	q.Status = models.QuestionPending
	q.Upvotes = 0
	q.Highlighted = false
	c := *q
	m.questions[q.ID] = &c
	m.byWebinar[q.WebinarID] = append(m.byWebinar[q.WebinarID], q.ID)
	m.upvoters[q.ID] = make(map[uuid.UUID]struct{})
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *q
	return &c, nil
}

func (m *Memory) List(_ context.Context, webinarID uuid.UUID) ([]models.Question, error) {
	m.mu.Lock()
	list := make([]models.Question, 0, len(m.byWebinar[webinarID]))
	for _, id := range m.byWebinar[webinarID] {
		list = append(list, *m.questions[id])
	}
	m.mu.Unlock()
	sort.Slice(list, func(a, b int) bool { return models.QuestionLess(list[a], list[b]) })
	return list, nil
}

func (m *Memory) Upvote(_ context.Context, questionID, participantID uuid.UUID) (*models.Question, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return nil, false, models.ErrNotFound
	}
	voters := m.upvoters[questionID]
	if _, voted := voters[participantID]; voted {
		c := *q
		return &c, false, nil
	}
	voters[participantID] = struct{}{}
	q.Upvotes = len(voters)
	c := *q
	return &c, true, nil
}

func (m *Memory) SetStatus(_ context.Context, id uuid.UUID, status models.QuestionStatus) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	q.Status = status
	q.Highlighted = false
	c := *q
	return &c, nil
}

func (m *Memory) Highlight(_ context.Context, id uuid.UUID) (*models.Question, *models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	var cleared *models.Question
	for _, other := range m.byWebinar[q.WebinarID] {
		if p := m.questions[other]; other != id && p.Highlighted {
			p.Highlighted = false
			c := *p
			cleared = &c
		}
	}
	q.Highlighted = true
	c := *q
	return &c, cleared, nil
}
