package webinars

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Memory is an in-process Store. With autoCreate set, unknown webinar ids are
// registered as scheduled on first use, which is how the memory driver runs without
// the webinar CRUD service.
type Memory struct {
	mu         sync.Mutex
	webinars   map[uuid.UUID]*models.Webinar
	autoCreate bool
}

// NewMemory creates an empty in-memory webinar store.
func NewMemory(autoCreate bool) *Memory {
	return &Memory{webinars: make(map[uuid.UUID]*models.Webinar), autoCreate: autoCreate}
}

// Put inserts or replaces a webinar.
func (m *Memory) Put(w models.Webinar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.Status == "" {
		w.Status = models.WebinarScheduled
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	m.webinars[w.ID] = &w
}

// Create registers a scheduled webinar.
func (m *Memory) Create(_ context.Context, w *models.Webinar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if _, ok := m.webinars[w.ID]; ok {
		return fmt.Errorf("%w: webinar %s is already registered", models.ErrInvalidState, w.ID)
	}
	w.Status = models.WebinarScheduled
	w.StartedAt, w.EndedAt = nil, nil
	w.CreatedAt = time.Now()
	c := *w
	m.webinars[w.ID] = &c
	return nil
}

func (m *Memory) lookup(id uuid.UUID) (*models.Webinar, bool) {
	w, ok := m.webinars[id]
	if !ok && m.autoCreate {
		w = &models.Webinar{ID: id, Status: models.WebinarScheduled, CreatedAt: time.Now()}
		m.webinars[id] = w
		ok = true
	}
	return w, ok
}

// Get returns a copy of the webinar.
func (m *Memory) Get(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.lookup(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *w
	return &c, nil
}

// Transition applies a status-guarded update.
func (m *Memory) Transition(_ context.Context, id uuid.UUID, from []models.WebinarStatus, to models.WebinarStatus, at time.Time) (*models.Webinar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.lookup(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	if !containsStatus(from, w.Status) {
		return nil, models.ErrConflict
	}
	applyTransition(w, to, at)
	c := *w
	return &c, nil
}
