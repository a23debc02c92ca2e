package sagalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Repository, used when no store is configured and
// in tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]SagaLog
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]SagaLog)}
}

func (m *Memory) Save(_ context.Context, entry *SagaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Seq = len(m.entries[entry.SagaID]) + 1
	m.entries[entry.SagaID] = append(m.entries[entry.SagaID], *entry)
	return nil
}

func (m *Memory) History(_ context.Context, sagaID string) ([]SagaLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SagaLog, len(m.entries[sagaID]))
	copy(out, m.entries[sagaID])
	return out, nil
}

// Statuses is a test helper listing the recorded statuses of a saga.
func (m *Memory) Statuses(sagaID string) []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Status
	for _, e := range m.entries[sagaID] {
		out = append(out, e.Status)
	}
	return out
}
