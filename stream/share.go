package stream

import "sync"

// Share multicasts the source through a refcounted latest-value subject.
//
// The source is subscribed when the first observer attaches; while at least
// one observer is attached, late observers synchronously receive the most
// recent value. When the last observer detaches, the source subscription and
// the retained value are both released, so a later resubscribe starts from a
// fresh source subscription rather than serving the previous lifetime's
// stale value.
func Share[T any](src Observable[T]) Observable[T] {
	type connection struct {
		subject *Subject[T]
		srcSub  Subscription
		refs    int
	}
	var mu sync.Mutex
	var conn *connection

	return func(obs Observer[T]) Subscription {
		mu.Lock()
		if conn == nil {
			conn = &connection{subject: newReplay[T]()}
		}
		c := conn
		c.refs++
		first := c.refs == 1
		mu.Unlock()

		portSub := c.subject.Observe().Subscribe(obs)

		if first {
			c.srcSub = src.Subscribe(Observer[T]{
				Next:     c.subject.Next,
				Err:      c.subject.Error,
				Complete: c.subject.Complete,
			})
		}

		return NewSubscription(func() {
			portSub.Unsubscribe()
			mu.Lock()
			c.refs--
			last := c.refs == 0
			if last && conn == c {
				conn = nil
			}
			mu.Unlock()
			if last && c.srcSub != nil {
				c.srcSub.Unsubscribe()
			}
		})
	}
}
