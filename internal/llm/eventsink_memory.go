package llm

import "sync"

// MemorySink stores events in-memory for tests.
type MemorySink struct {
	mu       sync.Mutex
	statuses []StatusEvent
	tokens   []TokenEvent
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Status(e StatusEvent) error {
	s.mu.Lock()
	s.statuses = append(s.statuses, e)
	s.mu.Unlock()
	return nil
}

func (s *MemorySink) Token(e TokenEvent) error {
	s.mu.Lock()
	s.tokens = append(s.tokens, e)
	s.mu.Unlock()
	return nil
}

func (s *MemorySink) Statuses() []StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusEvent, len(s.statuses))
	copy(out, s.statuses)
	return out
}

func (s *MemorySink) Tokens() []TokenEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TokenEvent, len(s.tokens))
	copy(out, s.tokens)
	return out
}
