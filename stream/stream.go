// Package stream provides the push-based observable primitives that drive a
// weave tree: subjects, the usual composition operators (map, scan, filter,
// merge, switch, combine-latest), refcounted multicast, and timer operators
// backed by a pluggable clock so tests can run in virtual time.
//
// Delivery is synchronous: calling Next on a subject invokes every downstream
// observer before Next returns. A whole reactive graph is expected to be
// driven from a single goroutine; subjects and the share operator are
// internally locked only so that emission snapshots stay consistent when
// subscribers come and go re-entrantly.
package stream

import "sync"

// Subscription represents a live link between an observable and an observer.
// Unsubscribe is idempotent and synchronous: after it returns, the observer
// receives no further emissions.
type Subscription interface {
	Unsubscribe()
}

type subscriptionFunc struct {
	once   sync.Once
	cancel func()
}

func (s *subscriptionFunc) Unsubscribe() {
	s.once.Do(s.cancel)
}

// NewSubscription wraps a cancel function as a Subscription.
func NewSubscription(cancel func()) Subscription {
	if cancel == nil {
		cancel = func() {}
	}
	return &subscriptionFunc{cancel: cancel}
}

// Observer receives emissions from an Observable. Any of the three callbacks
// may be nil; a nil Err panics on stream failure so that errors are never
// silently swallowed.
type Observer[T any] struct {
	Next     func(T)
	Err      func(error)
	Complete func()
}

func (o Observer[T]) norm() Observer[T] {
	if o.Next == nil {
		o.Next = func(T) {}
	}
	if o.Err == nil {
		o.Err = func(err error) { panic(err) }
	}
	if o.Complete == nil {
		o.Complete = func() {}
	}
	return o
}

// Observable is a push-based stream of values terminated by at most one
// error or completion.
type Observable[T any] func(Observer[T]) Subscription

// safeSub guards against the subtle ordering problem of synchronous sources:
// an observer may unsubscribe re-entrantly before the producer has returned
// its Subscription.
type safeSub struct {
	closed bool
	inner  Subscription
}

func (s *safeSub) set(inner Subscription) {
	if s.closed {
		inner.Unsubscribe()
		return
	}
	s.inner = inner
}

func (s *safeSub) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true
	if s.inner != nil {
		s.inner.Unsubscribe()
	}
}

// Subscribe attaches an observer, enforcing the stream contract: no emission
// after a terminal event, and no emission after Unsubscribe.
func (o Observable[T]) Subscribe(obs Observer[T]) Subscription {
	obs = obs.norm()
	done := false
	ss := &safeSub{}
	inner := o(Observer[T]{
		Next: func(v T) {
			if done || ss.closed {
				return
			}
			obs.Next(v)
		},
		Err: func(err error) {
			if done || ss.closed {
				return
			}
			done = true
			obs.Err(err)
		},
		Complete: func() {
			if done || ss.closed {
				return
			}
			done = true
			obs.Complete()
		},
	})
	ss.set(inner)
	return ss
}

// Each subscribes with just a value callback.
func (o Observable[T]) Each(next func(T)) Subscription {
	return o.Subscribe(Observer[T]{Next: next})
}

// Just emits a single value and completes.
func Just[T any](v T) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs.Next(v)
		obs.Complete()
		return NewSubscription(nil)
	}
}

// Of emits the given values in order and completes.
func Of[T any](vs ...T) Observable[T] {
	return func(obs Observer[T]) Subscription {
		for _, v := range vs {
			obs.Next(v)
		}
		obs.Complete()
		return NewSubscription(nil)
	}
}

// Empty completes immediately without emitting.
func Empty[T any]() Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs.Complete()
		return NewSubscription(nil)
	}
}

// Never neither emits nor terminates.
func Never[T any]() Observable[T] {
	return func(Observer[T]) Subscription {
		return NewSubscription(nil)
	}
}

// Fail errors immediately.
func Fail[T any](err error) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs.Err(err)
		return NewSubscription(nil)
	}
}
