package stream

import (
	"sync"
	"time"
)

// Debounce emits a value only after d has elapsed with no newer value. On
// completion a pending value is flushed before the completion is forwarded.
func Debounce[T any](src Observable[T], clock Clock, d time.Duration) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		var mu sync.Mutex
		var timer Timer
		var pending T
		hasPending := false

		flush := func() {
			mu.Lock()
			v, ok := pending, hasPending
			hasPending = false
			mu.Unlock()
			if ok {
				obs.Next(v)
			}
		}

		sub := src.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				pending, hasPending = v, true
				timer = clock.AfterFunc(d, flush)
				mu.Unlock()
			},
			Err: func(err error) {
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				hasPending = false
				mu.Unlock()
				obs.Err(err)
			},
			Complete: func() {
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				mu.Unlock()
				flush()
				obs.Complete()
			},
		})
		return NewSubscription(func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			hasPending = false
			mu.Unlock()
			sub.Unsubscribe()
		})
	}
}

// Delay shifts every emission, and the terminal event, by d. Relative order
// is preserved because the clock fires equal deadlines in scheduling order.
func Delay[T any](src Observable[T], clock Clock, d time.Duration) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		var mu sync.Mutex
		var timers []Timer
		closed := false

		schedule := func(f func()) {
			mu.Lock()
			if closed {
				mu.Unlock()
				return
			}
			timers = append(timers, clock.AfterFunc(d, f))
			mu.Unlock()
		}

		sub := src.Subscribe(Observer[T]{
			Next:     func(v T) { schedule(func() { obs.Next(v) }) },
			Err:      obs.Err,
			Complete: func() { schedule(obs.Complete) },
		})
		return NewSubscription(func() {
			mu.Lock()
			closed = true
			for _, t := range timers {
				t.Stop()
			}
			timers = nil
			mu.Unlock()
			sub.Unsubscribe()
		})
	}
}
