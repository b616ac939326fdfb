// Package presence tracks which participants are currently online for one
// client session. State is rebuilt from full snapshots and adjusted by
// individual online/offline events; the most recent event always wins.
package presence

import (
	"sort"
	"sync"
)

// Tracker holds the set of online participant ids. It is shared across chat
// sessions on the same connection and safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
	subs   map[int]func()
	nextID int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		online: make(map[string]struct{}),
		subs:   make(map[int]func()),
	}
}

// SetOnline marks a participant online. Idempotent.
func (t *Tracker) SetOnline(id string) {
	t.mu.Lock()
	t.online[id] = struct{}{}
	t.mu.Unlock()
	t.notify()
}

// SetOffline marks a participant offline. Idempotent.
func (t *Tracker) SetOffline(id string) {
	t.mu.Lock()
	delete(t.online, id)
	t.mu.Unlock()
	t.notify()
}

// ReplaceAll resynchronizes the set from a server snapshot. Used on connect
// and after transport reconnects to correct any drift.
func (t *Tracker) ReplaceAll(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	t.mu.Lock()
	t.online = next
	t.mu.Unlock()
	t.notify()
}

// IsOnline reports whether the participant is currently online.
func (t *Tracker) IsOnline(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

// Snapshot returns the online ids in sorted order.
func (t *Tracker) Snapshot() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Subscribe registers a change callback fired after every mutation. The
// returned function cancels the subscription.
func (t *Tracker) Subscribe(fn func()) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) notify() {
	t.mu.RLock()
	fns := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
