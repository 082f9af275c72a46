package session

import "sync"

// Locker serialises work on a single session while letting distinct sessions proceed
// in parallel.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock blocks until id is free and returns the matching unlock function.
func (l *Locker) Lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
