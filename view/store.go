// Package view holds the headless view models of the school front end.
//
// Every view owns one Store. The store's reducer is the only writer of the view state; side effects
// run in pipeline subjects and report back by dispatching actions. Closing a view cancels its
// subjects and makes its store inert, so a response arriving late never updates a closed view.
package view

import "sync"

// Reducer derives the next state of a view from an action.
type Reducer[S, A any] func(state S, action A) S

// Store serializes the actions of one view through its reducer and notifies subscribers of every
// new state. Subscribers must not dispatch synchronously.
type Store[S, A any] struct {
	reduce Reducer[S, A]

	dispatchMu sync.Mutex // orders reduce + notify

	mu     sync.RWMutex
	state  S
	subs   map[int]func(S)
	nextID int
	closed bool
}

func NewStore[S, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	return &Store[S, A]{reduce: reduce, state: initial, subs: make(map[int]func(S))}
}

// State returns the current state.
func (s *Store[S, A]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies an action. It is a no-op once the store is closed.
func (s *Store[S, A]) Dispatch(action A) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = s.reduce(s.state, action)
	state := s.state
	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// Subscribe registers fn for every future state and returns a function removing it.
func (s *Store[S, A]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close drops every subscriber and ignores later actions.
func (s *Store[S, A]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(S))
}

func (s *Store[S, A]) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
