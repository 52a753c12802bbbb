package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/pkg/retry"
)

type fakeSink struct {
	mu       sync.Mutex
	names    []string
	failures map[string]int
}

func (s *fakeSink) PublishEvent(_ uuid.UUID, ev realtime.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[ev.Name] > 0 {
		s.failures[ev.Name]--
		return errors.New("redis: connection refused")
	}
	s.names = append(s.names, ev.Name)
	return nil
}

func (s *fakeSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func TestNotifierDeliversInOrder(t *testing.T) {
	sink := &fakeSink{}
	n := NewNotifier(sink, retry.Policy{Attempts: 1}, nil)
	go n.Run()

	webinarID := uuid.New()
	for _, name := range []string{"interactionActivated", "interactionEnded", "interactionActivated"} {
		n.Publish(webinarID, realtime.Event{Name: name, Audience: realtime.AudienceAll})
	}
	n.Close()

	assert.Equal(t, []string{"interactionActivated", "interactionEnded", "interactionActivated"}, sink.delivered())
}

func TestNotifierRetriesThenGivesUp(t *testing.T) {
	sink := &fakeSink{failures: map[string]int{"flaky": 2, "broken": 10}}
	n := NewNotifier(sink, retry.Policy{Attempts: 3, Backoff: time.Millisecond}, nil)
	go n.Run()

	webinarID := uuid.New()
	n.Publish(webinarID, realtime.Event{Name: "flaky"})
	n.Publish(webinarID, realtime.Event{Name: "broken"})
	n.Publish(webinarID, realtime.Event{Name: "after"})
	n.Close()

	assert.Equal(t, []string{"flaky", "after"}, sink.delivered())
}

func TestNotifierDropsAfterClose(t *testing.T) {
	sink := &fakeSink{}
	n := NewNotifier(sink, retry.Policy{Attempts: 1}, nil)
	go n.Run()
	n.Close()
	n.Close()

	n.Publish(uuid.New(), realtime.Event{Name: "late"})
	assert.Empty(t, sink.delivered())
}
