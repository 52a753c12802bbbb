// Package reactions counts the audience pulse signals of a webinar.
package reactions

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Counter holds per-webinar reaction counts. Counts only go up until Reset.
type Counter interface {
	Incr(ctx context.Context, webinarID uuid.UUID, kind models.ReactionKind) error
	Counts(ctx context.Context, webinarID uuid.UUID) (models.ReactionCounts, error)
	Reset(ctx context.Context, webinarID uuid.UUID) error
}

// MemoryCounter keeps lock-free counters per webinar and kind.
type MemoryCounter struct {
	webinars sync.Map // uuid.UUID -> *kindCounters
}

type kindCounters map[models.ReactionKind]*atomic.Int64

// NewMemoryCounter creates an in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

func newKindCounters() kindCounters {
	k := make(kindCounters, len(models.ReactionKinds))
	for _, kind := range models.ReactionKinds {
		k[kind] = new(atomic.Int64)
	}
	return k
}

func (m *MemoryCounter) counters(webinarID uuid.UUID) kindCounters {
	if v, ok := m.webinars.Load(webinarID); ok {
		return v.(kindCounters)
	}
	v, _ := m.webinars.LoadOrStore(webinarID, newKindCounters())
	return v.(kindCounters)
}

func (m *MemoryCounter) Incr(_ context.Context, webinarID uuid.UUID, kind models.ReactionKind) error {
	c, ok := m.counters(webinarID)[kind]
	if !ok {
		return models.ErrValidation
	}
	c.Add(1)
	return nil
}

func (m *MemoryCounter) Counts(_ context.Context, webinarID uuid.UUID) (models.ReactionCounts, error) {
	counts := models.NewReactionCounts()
	v, ok := m.webinars.Load(webinarID)
	if !ok {
		return counts, nil
	}
	for kind, c := range v.(kindCounters) {
		counts[kind] = c.Load()
	}
	return counts, nil
}

// Reset swaps in fresh counters. Increments racing with the swap may land on the old set.
func (m *MemoryCounter) Reset(_ context.Context, webinarID uuid.UUID) error {
	m.webinars.Store(webinarID, newKindCounters())
	return nil
}
