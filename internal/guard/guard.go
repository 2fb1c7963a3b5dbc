// Package guard serializes refresh-token rotation per token id.
package guard

import (
	"context"
	"errors"
	"sync"
)

var ErrHeld = errors.New("refresh rotation already in progress")

// Guard hands out one lock per refresh id. Acquire never blocks: a second
// caller for the same id gets ErrHeld until release is called.
type Guard interface {
	Acquire(ctx context.Context, id uint) (release func(), err error)
}

// Memory is a process-local guard.
type Memory struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

func NewMemory() *Memory {
	return &Memory{held: map[uint]struct{}{}}
}

func (m *Memory) Acquire(_ context.Context, id uint) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[id]; ok {
		return nil, ErrHeld
	}
	m.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, id)
			m.mu.Unlock()
		})
	}, nil
}
