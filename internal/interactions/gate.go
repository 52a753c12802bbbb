package interactions

import (
	"sync"

	"github.com/google/uuid"
)

// statusGate is a reader/writer lock per webinar. Status transitions hold it
// exclusively; response admission holds it shared so no interaction of the webinar
// changes status between the admission check and the write. Entries are dropped
// once nobody holds or waits for them.
type statusGate struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*gateLock
}

type gateLock struct {
	sync.RWMutex
	refs int
}

func newStatusGate() *statusGate {
	return &statusGate{locks: make(map[uuid.UUID]*gateLock)}
}

func (g *statusGate) acquire(webinarID uuid.UUID) *gateLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[webinarID]
	if !ok {
		l = &gateLock{}
		g.locks[webinarID] = l
	}
	l.refs++
	return l
}

func (g *statusGate) drop(webinarID uuid.UUID, l *gateLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, webinarID)
	}
}

// shared blocks transitions in the webinar until release is called.
func (g *statusGate) shared(webinarID uuid.UUID) (release func()) {
	l := g.acquire(webinarID)
	l.RLock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.RUnlock()
			g.drop(webinarID, l)
		})
	}
}

// exclusive waits for in-flight admissions and blocks new ones until release is called.
func (g *statusGate) exclusive(webinarID uuid.UUID) (release func()) {
	l := g.acquire(webinarID)
	l.Lock()
	return func() {
		l.Unlock()
		g.drop(webinarID, l)
	}
}

func (g *statusGate) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
