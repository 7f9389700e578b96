package eventlog

import (
	"context"
	"sync"
)

// MemoryStore is the mutex-guarded append-only store every kernel run
// actually uses. Grounded on the teacher's infrastructure/state.MemoryBackend
// shape (guarded map plus explicit Close semantics), adapted from a mutable
// key/value map to an append-only log with secondary indices.
type MemoryStore struct {
	mu              sync.RWMutex
	events          []Event
	nextSeq         int64
	byCorrelationID map[string][]int
	byComponent     map[string][]int
	closed          bool
}

// NewMemoryStore returns an empty, ready-to-use in-memory event log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCorrelationID: make(map[string][]int),
		byComponent:     make(map[string][]int),
	}
}

func (m *MemoryStore) Append(ctx context.Context, e Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	e.Sequence = m.nextSeq
	m.nextSeq++
	idx := len(m.events)
	m.events = append(m.events, e)
	if e.CorrelationID != "" {
		m.byCorrelationID[e.CorrelationID] = append(m.byCorrelationID[e.CorrelationID], idx)
	}
	if e.Component != "" {
		m.byComponent[e.Component] = append(m.byComponent[e.Component], idx)
	}
	return e.Sequence, nil
}

func (m *MemoryStore) ReadAll(ctx context.Context, f Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := m.events
	if f.CorrelationID != "" {
		candidates = m.selectIndices(m.byCorrelationID[f.CorrelationID])
	} else if f.Component != "" {
		candidates = m.selectIndices(m.byComponent[f.Component])
	}

	out := make([]Event, 0, len(candidates))
	for _, e := range candidates {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) selectIndices(idxs []int) []Event {
	out := make([]Event, len(idxs))
	for i, idx := range idxs {
		out[i] = m.events[idx]
	}
	return out
}

func (m *MemoryStore) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.events = nil
	m.byCorrelationID = nil
	m.byComponent = nil
	return nil
}
