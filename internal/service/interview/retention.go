package interview

import (
	"log"
	"sync"
	"time"
)

// DefaultRetention is how long a completed session stays readable.
const DefaultRetention = time.Hour

// Retention evicts completed sessions once their grace period has passed.
// Each scheduled eviction is a tracked timer so that shutdown can cancel
// the ones still pending.
type Retention struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
	evict  func(id string) bool
	closed bool
}

// NewRetention creates a Retention that calls evict for each expired id.
func NewRetention(window time.Duration, evict func(id string) bool) *Retention {
	if window <= 0 {
		window = DefaultRetention
	}
	return &Retention{
		window: window,
		timers: make(map[string]*time.Timer),
		evict:  evict,
	}
}

// Window returns the retention period.
func (r *Retention) Window() time.Duration {
	return r.window
}

// Schedule arms the eviction timer for id. It reports false once the
// manager has been closed.
func (r *Retention) Schedule(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if _, pending := r.timers[id]; pending {
		return true
	}
	r.timers[id] = time.AfterFunc(r.window, func() { r.fire(id) })
	return true
}

func (r *Retention) fire(id string) {
	r.mu.Lock()
	delete(r.timers, id)
	closed := r.closed
	r.mu.Unlock()

	if closed {
		return
	}

	removed := r.evict(id)
	if removed {
		log.Printf("[retention] session %s cleaned up from memory", id)
	} else {
		log.Printf("[retention] session %s was already gone at cleanup", id)
	}
}

// Pending returns the number of armed timers.
func (r *Retention) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Close cancels every pending eviction and rejects new ones.
func (r *Retention) Close() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	stopped := 0
	for id, t := range r.timers {
		if t.Stop() {
			stopped++
		}
		delete(r.timers, id)
	}
	return stopped
}
