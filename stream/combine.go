package stream

// Merge interleaves the emissions of all sources, completing once every
// source has completed. An error from any source fails the merged stream
// immediately.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return func(obs Observer[T]) Subscription {
		obs = obs.norm()
		if len(sources) == 0 {
			obs.Complete()
			return NewSubscription(nil)
		}
		remaining := len(sources)
		subs := make([]Subscription, 0, len(sources))
		for _, src := range sources {
			subs = append(subs, src.Subscribe(Observer[T]{
				Next: obs.Next,
				Err:  obs.Err,
				Complete: func() {
					remaining--
					if remaining == 0 {
						obs.Complete()
					}
				},
			}))
		}
		return NewSubscription(func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		})
	}
}

// SwitchMap projects each source value to an inner observable, mirroring only
// the most recent inner one. Starting a new inner stream synchronously
// unsubscribes the previous one.
func SwitchMap[T, U any](src Observable[T], project func(T) Observable[U]) Observable[U] {
	return func(obs Observer[U]) Subscription {
		obs = obs.norm()
		var inner Subscription
		innerLive := false
		outerDone := false
		ss := &safeSub{}
		ss.set(src.Subscribe(Observer[T]{
			Next: func(v T) {
				if inner != nil {
					inner.Unsubscribe()
				}
				innerLive = true
				inner = project(v).Subscribe(Observer[U]{
					Next: obs.Next,
					Err:  obs.Err,
					Complete: func() {
						innerLive = false
						if outerDone {
							obs.Complete()
						}
					},
				})
			},
			Err: obs.Err,
			Complete: func() {
				outerDone = true
				if !innerLive {
					obs.Complete()
				}
			},
		}))
		return NewSubscription(func() {
			ss.Unsubscribe()
			if inner != nil {
				inner.Unsubscribe()
			}
		})
	}
}

// MergeMap projects each source value to an inner observable and merges all
// live inner streams.
func MergeMap[T, U any](src Observable[T], project func(T) Observable[U]) Observable[U] {
	return func(obs Observer[U]) Subscription {
		obs = obs.norm()
		live := 0
		outerDone := false
		var inners []Subscription
		ss := &safeSub{}
		ss.set(src.Subscribe(Observer[T]{
			Next: func(v T) {
				live++
				inners = append(inners, project(v).Subscribe(Observer[U]{
					Next: obs.Next,
					Err:  obs.Err,
					Complete: func() {
						live--
						if outerDone && live == 0 {
							obs.Complete()
						}
					},
				}))
			},
			Err: obs.Err,
			Complete: func() {
				outerDone = true
				if live == 0 {
					obs.Complete()
				}
			},
		}))
		return NewSubscription(func() {
			ss.Unsubscribe()
			for _, s := range inners {
				s.Unsubscribe()
			}
		})
	}
}

// CombineLatest2 pairs the latest values of two sources. Nothing is emitted
// until both have produced a value; thereafter every update from either side
// emits a fresh combination.
func CombineLatest2[A, B, C any](a Observable[A], b Observable[B], f func(A, B) C) Observable[C] {
	return func(obs Observer[C]) Subscription {
		obs = obs.norm()
		var la A
		var lb B
		hasA, hasB := false, false
		doneA, doneB := false, false
		emit := func() {
			if hasA && hasB {
				obs.Next(f(la, lb))
			}
		}
		subA := a.Subscribe(Observer[A]{
			Next: func(v A) { la, hasA = v, true; emit() },
			Err:  obs.Err,
			Complete: func() {
				doneA = true
				if doneB {
					obs.Complete()
				}
			},
		})
		subB := b.Subscribe(Observer[B]{
			Next: func(v B) { lb, hasB = v, true; emit() },
			Err:  obs.Err,
			Complete: func() {
				doneB = true
				if doneA {
					obs.Complete()
				}
			},
		})
		return NewSubscription(func() {
			subA.Unsubscribe()
			subB.Unsubscribe()
		})
	}
}

// CombineLatestMap combines a fixed, string-keyed set of sources into a map
// of their latest values, with standard combine-latest gating: the first
// emission waits for every key to have produced at least one value, and each
// subsequent single-key update emits a fresh map snapshot.
//
// An empty source set emits one empty map and completes.
func CombineLatestMap[T any](sources map[string]Observable[T]) Observable[map[string]T] {
	return func(obs Observer[map[string]T]) Subscription {
		obs = obs.norm()
		if len(sources) == 0 {
			obs.Next(map[string]T{})
			obs.Complete()
			return NewSubscription(nil)
		}
		latest := make(map[string]T, len(sources))
		pending := len(sources)
		done := 0
		emit := func() {
			if pending > 0 {
				return
			}
			snap := make(map[string]T, len(latest))
			for k, v := range latest {
				snap[k] = v
			}
			obs.Next(snap)
		}
		subs := make([]Subscription, 0, len(sources))
		for key, src := range sources {
			subs = append(subs, src.Subscribe(Observer[T]{
				Next: func(v T) {
					if _, ok := latest[key]; !ok {
						pending--
					}
					latest[key] = v
					emit()
				},
				Err: obs.Err,
				Complete: func() {
					done++
					if done == len(sources) {
						obs.Complete()
					}
				},
			}))
		}
		return NewSubscription(func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		})
	}
}
