package resolver

import (
	"sync"

	"github.com/google/uuid"
)

// gameLocker serializes command resolution per game. Commands for different
// games proceed in parallel; two commands for the same game never interleave
// their read-decide-write cycles.
type gameLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newGameLocker() *gameLocker {
	return &gameLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *gameLocker) lock(gameID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[gameID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
