package quiz

import "sync"

// Effect observes every dispatched action after the reducer ran. Effects
// run on the dispatching goroutine in registration order and must not call
// Dispatch themselves.
type Effect func(a Action, prev, next State)

// Store is the single writer of the quiz State.
type Store struct {
	mu      sync.Mutex
	state   State
	grader  *Grader
	effects []Effect
}

func NewStore(g *Grader) *Store {
	if g == nil {
		g = defaultGrader
	}
	return &Store{state: InitialState(), grader: g}
}

// Use registers an effect.
func (s *Store) Use(e Effect) {
	s.mu.Lock()
	s.effects = append(s.effects, e)
	s.mu.Unlock()
}

// Dispatch reduces a and notifies effects. Dispatches are serialized.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = reduce(s.grader, prev, a)
	for _, e := range s.effects {
		e(a, prev, s.state)
	}
	return s.state
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
