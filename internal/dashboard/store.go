package dashboard

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// StoreMetrics receives the session count after every change.
type StoreMetrics interface {
	SetViewSessions(n int)
}

// Store keeps view sessions in memory, bounded by capacity (least recently
// used evicted first) and by idle TTL.
type Store struct {
	capacity int
	ttl      time.Duration
	clock    clockwork.Clock
	metrics  StoreMetrics

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type storeEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewStore creates a store. ttl <= 0 disables idle expiry.
func NewStore(capacity int, ttl time.Duration, clock clockwork.Clock, metrics StoreMetrics) *Store {
	if capacity < 1 {
		capacity = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		capacity: capacity,
		ttl:      ttl,
		clock:    clock,
		metrics:  metrics,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Put adds s, evicting the least recently used session when full.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.Now()
	if el, ok := st.entries[s.ID]; ok {
		el.Value = &storeEntry{session: s, lastSeen: now}
		st.order.MoveToFront(el)
		return
	}

	st.entries[s.ID] = st.order.PushFront(&storeEntry{session: s, lastSeen: now})
	for st.order.Len() > st.capacity {
		st.removeElement(st.order.Back())
	}
	st.report()
}

// Get returns the session and refreshes its idle timer. Expired sessions are
// removed and reported as missing.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	el, ok := st.entries[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*storeEntry)
	now := st.clock.Now()
	if st.expired(e, now) {
		st.removeElement(el)
		st.report()
		return nil, false
	}
	e.lastSeen = now
	st.order.MoveToFront(el)
	return e.session, true
}

// Len returns the number of sessions held, including expired ones not yet
// swept.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.order.Len()
}

// Sweep removes every expired session and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.Now()
	removed := 0
	// Oldest first; stop at the first live entry.
	for el := st.order.Back(); el != nil; {
		prev := el.Prev()
		if !st.expired(el.Value.(*storeEntry), now) {
			break
		}
		st.removeElement(el)
		removed++
		el = prev
	}
	if removed > 0 {
		st.report()
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := st.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			st.Sweep()
		}
	}
}

func (st *Store) expired(e *storeEntry, now time.Time) bool {
	return st.ttl > 0 && now.Sub(e.lastSeen) >= st.ttl
}

func (st *Store) removeElement(el *list.Element) {
	e := st.order.Remove(el).(*storeEntry)
	delete(st.entries, e.session.ID)
}

func (st *Store) report() {
	if st.metrics != nil {
		st.metrics.SetViewSessions(st.order.Len())
	}
}
