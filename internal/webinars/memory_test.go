package webinars

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/models"
)

func TestMemoryTransitions(t *testing.T) {
	m := NewMemory(false)
	ctx := context.Background()
	w := &models.Webinar{HostID: uuid.New(), AllowLateResponses: true}
	require.NoError(t, m.Create(ctx, w))
	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, models.WebinarScheduled, w.Status)

	err := m.Create(ctx, &models.Webinar{ID: w.ID})
	assert.ErrorIs(t, err, models.ErrInvalidState)

	at := time.Now()
	live, err := m.Transition(ctx, w.ID, []models.WebinarStatus{models.WebinarScheduled}, models.WebinarLive, at)
	require.NoError(t, err)
	require.NotNil(t, live.StartedAt)
	assert.True(t, live.AllowLateResponses)

	_, err = m.Transition(ctx, w.ID, []models.WebinarStatus{models.WebinarScheduled}, models.WebinarLive, at)
	assert.ErrorIs(t, err, models.ErrConflict)

	ended, err := m.Transition(ctx, w.ID, []models.WebinarStatus{models.WebinarLive}, models.WebinarEnded, at.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, *live.StartedAt, *ended.StartedAt)
}

func TestMemoryAutoCreate(t *testing.T) {
	ctx := context.Background()
	_, err := NewMemory(false).Get(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	w, err := NewMemory(true).Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.WebinarScheduled, w.Status)
}
