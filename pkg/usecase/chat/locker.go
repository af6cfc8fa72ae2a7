package chat

import (
	"sync"

	"github.com/m-mizutani/solace/pkg/model"
)

// locker hands out one mutex per user so events for the same user run
// serialized while different users proceed in parallel. Entries are never
// evicted; the active user set is small enough for that to be fine.
type locker struct {
	mu    sync.Mutex
	locks map[model.UserID]*sync.Mutex
}

func newLocker() *locker {
	return &locker{locks: make(map[model.UserID]*sync.Mutex)}
}

// acquire locks the user's mutex and returns the unlock function
func (l *locker) acquire(id model.UserID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
