package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Listeners run synchronously on the
// goroutine that calls Set or Delete.
type MemoryStore struct {
	mu        sync.Mutex
	values    map[string]any
	listeners map[int]Listener
	next      int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store holding a copy of values.
func NewMemoryStore(values map[string]any) *MemoryStore {
	s := &MemoryStore{
		values:    make(map[string]any, len(values)),
		listeners: make(map[int]Listener),
	}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, defaults Settings) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out, _ := merge(defaults, s.values)
	return out, nil
}

func (s *MemoryStore) OnChange(listener Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Set stores changes and notifies listeners.
func (s *MemoryStore) Set(changes map[string]any) {
	s.mu.Lock()
	for k, v := range changes {
		s.values[k] = v
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(changes)
	}
}

// Delete removes keys and notifies listeners with nil values.
func (s *MemoryStore) Delete(keys ...string) {
	changes := make(map[string]any, len(keys))
	s.mu.Lock()
	for _, k := range keys {
		delete(s.values, k)
		changes[k] = nil
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(changes)
	}
}

func (s *MemoryStore) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}
