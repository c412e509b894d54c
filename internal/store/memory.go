package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps transcripts in process. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[uuid.UUID]Transcript
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transcripts: make(map[uuid.UUID]Transcript)}
}

func (m *MemoryStore) Save(_ context.Context, t *Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[t.ID] = copyTranscript(*t)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyTranscript(t)
	return &out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() {}

// Len returns the number of stored transcripts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transcripts)
}

func copyTranscript(t Transcript) Transcript {
	t.Turns = append(t.Turns[:0:0], t.Turns...)
	return t
}
