package memory

import (
	"context"
	"sync"
)

// Sequencer счётчик номеров счетов по годам.
type Sequencer struct {
	mu     sync.Mutex
	values map[int]int64
}

func NewSequencer() *Sequencer {
	return &Sequencer{values: make(map[int]int64)}
}

// Next возвращает следующее значение счётчика года.
func (s *Sequencer) Next(_ context.Context, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[year]++
	return s.values[year], nil
}
