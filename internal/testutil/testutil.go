// Package testutil has fakes and fixtures shared by the engine's package tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/webinars"
)

// Published is one event captured by Publisher.
type Published struct {
	WebinarID uuid.UUID
	Event     realtime.Event
}

// Publisher records events synchronously instead of fanning them out.
type Publisher struct {
	mu     sync.Mutex
	events []Published
}

// Publish implements realtime.Publisher.
func (p *Publisher) Publish(webinarID uuid.UUID, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{WebinarID: webinarID, Event: ev})
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.events...)
}

// Names returns the published event names in order.
func (p *Publisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.Event.Name
	}
	return names
}

// Last returns the most recent event with the given name and audience.
func (p *Publisher) Last(name string, audience realtime.Audience) (realtime.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if e := p.events[i].Event; e.Name == name && e.Audience == audience {
			return e, true
		}
	}
	return realtime.Event{}, false
}

// Reset drops recorded events.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// LiveWebinar registers a live webinar in store and returns its id.
func LiveWebinar(t *testing.T, store *webinars.Memory, allowLate bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	store.Put(models.Webinar{ID: id, HostID: uuid.New(), Status: models.WebinarLive, AllowLateResponses: allowLate})
	return id
}
