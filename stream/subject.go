package stream

import "sync"

// port is one attached observer of a subject. The active flag is how a
// mid-emission unsubscribe is honored: emission loops run over a snapshot, so
// removal from the slice alone is not enough.
type port[T any] struct {
	obs    Observer[T]
	active bool
}

// Subject is a multicast hot stream: values pushed with Next are delivered
// synchronously to every current subscriber, in subscription order.
type Subject[T any] struct {
	mu     sync.Mutex
	ports  []*port[T]
	done   bool
	failed error

	// replay state, used by Behavior and the share operator
	replay bool
	has    bool
	latest T
}

// NewSubject creates a subject with no replay: late subscribers only see
// values pushed after they attach.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// NewBehavior creates a subject that remembers its latest value and replays
// it synchronously to every new subscriber, seeded with an initial value.
func NewBehavior[T any](seed T) *Subject[T] {
	return &Subject[T]{replay: true, has: true, latest: seed}
}

// newReplay creates an unseeded latest-value subject. Used internally by
// Share; it behaves like NewBehavior once the first value arrives.
func newReplay[T any]() *Subject[T] {
	return &Subject[T]{replay: true}
}

func (s *Subject[T]) snapshot() []*port[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*port[T], len(s.ports))
	copy(out, s.ports)
	return out
}

// Next pushes a value to all current subscribers.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	if s.replay {
		s.has = true
		s.latest = v
	}
	ports := make([]*port[T], len(s.ports))
	copy(ports, s.ports)
	s.mu.Unlock()

	for _, p := range ports {
		if p.active {
			p.obs.Next(v)
		}
	}
}

// Error fails the subject; subscribers receive the error and the subject
// accepts no further values.
func (s *Subject[T]) Error(err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.failed = err
	ports := s.ports
	s.ports = nil
	s.mu.Unlock()

	for _, p := range ports {
		if p.active {
			p.obs.Err(err)
		}
	}
}

// Complete terminates the subject normally.
func (s *Subject[T]) Complete() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	ports := s.ports
	s.ports = nil
	s.mu.Unlock()

	for _, p := range ports {
		if p.active {
			p.obs.Complete()
		}
	}
}

// Value reports the latest replayed value, if any.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.has
}

// Observe exposes the subject as an Observable.
func (s *Subject[T]) Observe() Observable[T] {
	return func(obs Observer[T]) Subscription {
		s.mu.Lock()
		if s.done {
			failed := s.failed
			replayVal, hasReplay := s.latest, s.replay && s.has
			s.mu.Unlock()
			if failed != nil {
				obs.Err(failed)
			} else {
				if hasReplay {
					obs.Next(replayVal)
				}
				obs.Complete()
			}
			return NewSubscription(nil)
		}
		p := &port[T]{obs: obs, active: true}
		s.ports = append(s.ports, p)
		replayVal, hasReplay := s.latest, s.replay && s.has
		s.mu.Unlock()

		if hasReplay {
			// Synchronous replay of the retained value to the late
			// subscriber, before any live emission.
			if p.active {
				obs.Next(replayVal)
			}
		}

		return NewSubscription(func() {
			p.active = false
			s.mu.Lock()
			for i, q := range s.ports {
				if q == p {
					s.ports = append(s.ports[:i], s.ports[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		})
	}
}
