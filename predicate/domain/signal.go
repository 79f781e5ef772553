package predicate

import (
	"sync"
	"time"
)

// EvaluationEvent is emitted after a node has been evaluated.
type EvaluationEvent struct {
	Node     Node
	Result   bool
	Duration time.Duration
	Depth    int
}

type Observer func(EvaluationEvent)

type observerEntry struct {
	id       uint64
	observer Observer
}

// EvaluationSignal fans evaluation events out to attached observers.
type EvaluationSignal struct {
	mu        sync.RWMutex
	observers []observerEntry
	nextID    uint64
}

func NewEvaluationSignal() *EvaluationSignal {
	return &EvaluationSignal{}
}

// Attach registers an observer and returns the function that detaches it.
func (s *EvaluationSignal) Attach(observer Observer) (detach func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observerEntry{id: id, observer: observer})
	s.mu.Unlock()
	return func() {
		s.detach(id)
	}
}

func (s *EvaluationSignal) detach(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *EvaluationSignal) HasObservers() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers) > 0
}

func (s *EvaluationSignal) Notify(event EvaluationEvent) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, e := range observers {
		e.observer(event)
	}
}
