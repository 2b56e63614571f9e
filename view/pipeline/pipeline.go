// Package pipeline runs the side effects triggered by view events.
//
// A Subject receives events through Next and hands each one to a Handler according to its Policy:
//
//	Exhaust  drops events while a previous one is being handled (submit, save, delete...)
//	Switch   cancels the handler in flight and starts the new one (navigation-triggered loads)
//	Concat   queues events and handles them one at a time, in order (autosave, SCORM commits)
//
// Next never blocks. Handlers report their outcome through the view store, never to the caller,
// so a failing handler does not stop the subject. After Close, Next is a no-op and the context
// given to every handler is cancelled.
package pipeline

import (
	"context"
	"sync"
)

type Policy int

const (
	Exhaust Policy = iota
	Switch
	Concat
)

func (p Policy) String() string {
	switch p {
	case Exhaust:
		return "exhaust"
	case Switch:
		return "switch"
	case Concat:
		return "concat"
	}
	return "unknown"
}

// Handler performs the side effect of one event. ctx is cancelled when the subject closes or,
// under Switch, when a newer event supersedes this one.
type Handler[E any] func(ctx context.Context, e E)

// Subject is the event sink of one mutating interaction of a view.
type Subject[E any] struct {
	policy Policy
	handle Handler[E]
	filter func(E) bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	busy          bool               // exhaust
	cancelCurrent context.CancelFunc // switch
	queue         []E                // concat
	draining      bool               // concat
}

type Option[E any] func(*Subject[E])

// WithFilter drops every event for which keep returns false, before the policy applies.
// It is typically used to refuse events that conflict with an operation already in flight.
func WithFilter[E any](keep func(E) bool) Option[E] {
	return func(s *Subject[E]) {
		s.filter = keep
	}
}

// New returns a subject bound to the lifetime of ctx.
func New[E any](ctx context.Context, policy Policy, handle Handler[E], opts ...Option[E]) *Subject[E] {
	s := &Subject[E]{policy: policy, handle: handle}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Subject[E]) Policy() Policy { return s.policy }

// Next pushes an event into the subject.
func (s *Subject[E]) Next(e E) {
	if s.filter != nil && !s.filter(e) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return
	}

	switch s.policy {
	case Exhaust:
		if s.busy {
			return
		}
		s.busy = true
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			s.handle(s.ctx, e)
		}()

	case Switch:
		if s.cancelCurrent != nil {
			s.cancelCurrent()
		}
		ctx, cancel := context.WithCancel(s.ctx)
		s.cancelCurrent = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer cancel()
			s.handle(ctx, e)
		}()

	case Concat:
		s.queue = append(s.queue, e)
		if !s.draining {
			s.draining = true
			s.wg.Add(1)
			go s.drain()
		}
	}
}

func (s *Subject[E]) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// drain handles queued events until the queue is empty or the subject closes.
func (s *Subject[E]) drain() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.ctx.Err() != nil {
			s.queue = nil
			s.draining = false
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.handle(s.ctx, e)
	}
}

// Busy reports whether a handler is running or events are queued.
func (s *Subject[E]) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy || s.draining
}

// Close cancels the handlers in flight and discards queued events. It does not wait for the
// handlers to return; see Wait.
func (s *Subject[E]) Close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every handler started so far has returned.
func (s *Subject[E]) Wait() {
	s.wg.Wait()
}

// Closer is anything a view tears down when it closes.
type Closer interface {
	Close()
	Wait()
}

// Group closes a set of subjects together.
type Group []Closer

func (g Group) Close() {
	for _, c := range g {
		c.Close()
	}
}

func (g Group) Wait() {
	for _, c := range g {
		c.Wait()
	}
}
