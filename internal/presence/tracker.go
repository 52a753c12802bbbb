// Package presence tracks how many distinct participants are connected to each webinar.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hooks observe debounced presence changes. They run under the tracker's lock, in
// order, so they must not block or call back into the Tracker.
type Hooks struct {
	OnJoin   func(webinarID, participantID uuid.UUID)
	OnLeave  func(webinarID, participantID uuid.UUID)
	OnChange func(webinarID uuid.UUID, count int)
}

type room struct {
	conns   map[uuid.UUID]int
	pending map[uuid.UUID]*time.Timer
	peak    int
}

func (r *room) count() int {
	return len(r.conns) + len(r.pending)
}

// Tracker counts distinct participants. A participant whose last connection drops
// stays counted for the grace window; reconnecting inside it changes nothing.
type Tracker struct {
	mu     sync.Mutex
	grace  time.Duration
	rooms  map[uuid.UUID]*room
	hooks  Hooks
	closed bool
}

// NewTracker creates a tracker with the given reconnect grace window.
func NewTracker(grace time.Duration, hooks Hooks) *Tracker {
	return &Tracker{grace: grace, rooms: make(map[uuid.UUID]*room), hooks: hooks}
}

func (t *Tracker) room(webinarID uuid.UUID) *room {
	r, ok := t.rooms[webinarID]
	if !ok {
		r = &room{conns: make(map[uuid.UUID]int), pending: make(map[uuid.UUID]*time.Timer)}
		t.rooms[webinarID] = r
	}
	return r
}

// Connect registers one connection of a participant.
func (t *Tracker) Connect(webinarID, participantID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.room(webinarID)
	if timer, ok := r.pending[participantID]; ok {
		timer.Stop()
		delete(r.pending, participantID)
		r.conns[participantID] = 1
		return
	}
	r.conns[participantID]++
	if r.conns[participantID] > 1 {
		return
	}
	if n := r.count(); n > r.peak {
		r.peak = n
	}
	if t.hooks.OnJoin != nil {
		t.hooks.OnJoin(webinarID, participantID)
	}
	t.changed(webinarID, r)
}

// Disconnect drops one connection of a participant. When it was the last one, the
// participant leaves after the grace window unless they reconnect.
func (t *Tracker) Disconnect(webinarID, participantID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rooms[webinarID]
	if !ok || r.conns[participantID] == 0 {
		return
	}
	r.conns[participantID]--
	if r.conns[participantID] > 0 {
		return
	}
	delete(r.conns, participantID)
	if t.grace <= 0 || t.closed {
		t.leave(webinarID, participantID, r)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.grace, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if r.pending[participantID] != timer {
			return
		}
		delete(r.pending, participantID)
		t.leave(webinarID, participantID, r)
	})
	r.pending[participantID] = timer
}

func (t *Tracker) leave(webinarID, participantID uuid.UUID, r *room) {
	if t.hooks.OnLeave != nil {
		t.hooks.OnLeave(webinarID, participantID)
	}
	t.changed(webinarID, r)
}

func (t *Tracker) changed(webinarID uuid.UUID, r *room) {
	if t.hooks.OnChange != nil {
		t.hooks.OnChange(webinarID, r.count())
	}
}

// Count returns the number of connected distinct participants.
func (t *Tracker) Count(webinarID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.rooms[webinarID]; ok {
		return r.count()
	}
	return 0
}

// Peak returns the highest concurrent count seen for the webinar.
func (t *Tracker) Peak(webinarID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.rooms[webinarID]; ok {
		return r.peak
	}
	return 0
}

// Forget ends every presence window in the webinar, pending or connected, and drops
// its state. Used once the webinar has ended.
func (t *Tracker) Forget(webinarID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rooms[webinarID]
	if !ok {
		return
	}
	for participantID, timer := range r.pending {
		timer.Stop()
		delete(r.pending, participantID)
		t.leave(webinarID, participantID, r)
	}
	for participantID := range r.conns {
		delete(r.conns, participantID)
		t.leave(webinarID, participantID, r)
	}
	delete(t.rooms, webinarID)
}

// Close flushes pending leaves immediately. Later disconnects leave without grace.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for webinarID, r := range t.rooms {
		for participantID, timer := range r.pending {
			timer.Stop()
			delete(r.pending, participantID)
			t.leave(webinarID, participantID, r)
		}
	}
}
