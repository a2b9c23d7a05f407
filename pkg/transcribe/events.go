package transcribe

import (
	"sync"
	"time"
)

// Transition records one change of a Controller's SessionState.
type Transition struct {
	SessionID string       `json:"sessionId" yaml:"sessionId"`
	From      SessionState `json:"from" yaml:"from"`
	To        SessionState `json:"to" yaml:"to"`
	At        time.Time    `json:"at" yaml:"at"`
}

// TransitionSubscriber receives transitions in the order they happen.
// Handle is called synchronously while transitions are serialized; it must
// not call methods of the emitting Controller.
type TransitionSubscriber interface {
	Handle(t Transition)
	Name() string
}

// transitionStream is a minimal synchronous dispatcher.
type transitionStream struct {
	mu          sync.RWMutex
	subscribers []TransitionSubscriber
}

func newTransitionStream() *transitionStream {
	return &transitionStream{
		subscribers: make([]TransitionSubscriber, 0, 2),
	}
}

func (s *transitionStream) subscribe(sub TransitionSubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

func (s *transitionStream) emit(t Transition) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		sub.Handle(t)
	}
}
