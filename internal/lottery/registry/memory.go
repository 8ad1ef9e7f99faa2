package registry

import (
	"context"
	"sync"
)

// Memory guarda o conjunto de agências pendentes em memória, protegido por um
// único mutex. É o backend default para execução em processo único.
type Memory struct {
	mu      sync.Mutex
	pending map[int]struct{}
}

func NewMemory() *Memory {
	return &Memory{pending: make(map[int]struct{})}
}

func (m *Memory) MarkActive(_ context.Context, agency int) error {
	m.mu.Lock()
	m.pending[agency] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) MarkDone(_ context.Context, agency int) error {
	m.mu.Lock()
	delete(m.pending, agency)
	m.mu.Unlock()
	return nil
}

func (m *Memory) IsDrawReady(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) == 0, nil
}
