package stream

// Map transforms each value.
func Map[T, U any](src Observable[T], f func(T) U) Observable[U] {
	return func(obs Observer[U]) Subscription {
		obs = obs.norm()
		return src.Subscribe(Observer[T]{
			Next:     func(v T) { obs.Next(f(v)) },
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}

// Filter passes through values for which keep returns true.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				if keep(v) {
					obs.Next(v)
				}
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}

// MapFilter transforms and filters in one step: values for which f reports
// false are dropped.
func MapFilter[T, U any](src Observable[T], f func(T) (U, bool)) Observable[U] {
	return func(obs Observer[U]) Subscription {
		obs = obs.norm()
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				if u, ok := f(v); ok {
					obs.Next(u)
				}
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}

// Tap invokes f for each value without altering the stream.
func Tap[T any](src Observable[T], f func(T)) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				f(v)
				obs.Next(v)
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}

// Scan folds the stream with a seeded accumulator, emitting the accumulator
// after each input. The seed itself is not emitted; combine with StartWith
// when an initial emission is wanted.
func Scan[T, S any](src Observable[T], seed S, f func(S, T) S) Observable[S] {
	return func(obs Observer[S]) Subscription {
		obs = obs.norm()
		acc := seed
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				acc = f(acc, v)
				obs.Next(acc)
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}

// StartWith emits the given values before the source's emissions.
func StartWith[T any](src Observable[T], vs ...T) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		ss := &safeSub{}
		for _, v := range vs {
			if ss.closed {
				return ss
			}
			obs.Next(v)
		}
		ss.set(src.Subscribe(obs))
		return ss
	}
}

// Take completes after n values, releasing the upstream subscription.
func Take[T any](src Observable[T], n int) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		if n <= 0 {
			obs.Complete()
			return NewSubscription(nil)
		}
		seen := 0
		ss := &safeSub{}
		ss.set(src.Subscribe(Observer[T]{
			Next: func(v T) {
				seen++
				obs.Next(v)
				if seen == n {
					obs.Complete()
					ss.Unsubscribe()
				}
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		}))
		return ss
	}
}

// DistinctUntilChanged suppresses a value equal to its predecessor. The first
// value always passes.
func DistinctUntilChanged[T any](src Observable[T], eq func(a, b T) bool) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		var prev T
		has := false
		return src.Subscribe(Observer[T]{
			Next: func(v T) {
				if has && eq(prev, v) {
					return
				}
				prev, has = v, true
				obs.Next(v)
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}

// IgnoreElements drops every value, forwarding only the terminal event. The
// output element type is free since no element is ever produced.
func IgnoreElements[T, U any](src Observable[T]) Observable[U] {
	return func(obs Observer[U]) Subscription {
		obs = obs.norm()
		return src.Subscribe(Observer[T]{
			Next:     func(T) {},
			Err:      obs.Err,
			Complete: obs.Complete,
		})
	}
}
