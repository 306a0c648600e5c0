// Package animate layers a transition lifecycle on top of an arbitrary
// child flow: each child state belongs to a keyed iteration that is either
// settled or pending a directional transition, driven by externally
// signalled animation start/end events with force-settle grace timers.
package animate

import (
	"sync"
	"time"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/stream"
)

// Direction of a pending transition.
type Direction string

const (
	// In marks an iteration entering the tree.
	In Direction = "in"
	// Out marks an iteration leaving the tree.
	Out Direction = "out"
)

// Kind of an animation event observed by the external renderer.
type Kind string

const (
	Start Kind = "start"
	End   Kind = "end"
)

// Event is an animation lifecycle signal fed back from the renderer. Events
// whose key or direction do not match a live pending transition are ignored.
type Event struct {
	Key  int
	Dir  Direction
	Kind Kind
}

// Iteration is one live child state. Transition is nil once the iteration has
// settled.
type Iteration struct {
	Key        int
	State      any
	Transition *Direction
}

// Decision is the outcome of comparing consecutive child states.
type Decision int

const (
	// None settles the current iteration in place with the new state.
	None Decision = iota
	// Both keeps the current iteration alive for an out-transition while a
	// new iteration enters.
	Both
)

// Decide inspects the previous child state (hasPrev false on the first value)
// and the next one, and chooses whether the change animates.
type Decide func(prev any, hasPrev bool, next any) Decision

const (
	// end events for the two directions of one swap arriving within this
	// window collapse into a single downstream emission
	endDebounce = 100 * time.Millisecond

	// force-settle a pending transition the renderer never acknowledged
	graceUnstarted = 500 * time.Millisecond

	// a start event was seen, so a genuine animation is assumed in progress
	graceStarted = 5000 * time.Millisecond
)

// Machine wraps a child flow with the transition lifecycle. Its output state
// is a []Iteration ordered oldest first; at most two iterations are live at
// once per swap, the outgoing one and the incoming one.
type Machine struct {
	child  weave.Flow
	decide Decide
	events stream.Observable[Event]
	clock  stream.Clock
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock substitutes the timer source, for virtual-time tests.
func WithClock(c stream.Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// NewMachine builds the lifecycle wrapper around child. decide is consulted
// on every child state; events carries the renderer's start/end signals.
func NewMachine(child weave.Flow, decide Decide, events stream.Observable[Event], opts ...Option) *Machine {
	m := &Machine{
		child:  child,
		decide: decide,
		events: events,
		clock:  stream.SystemClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Flow adapts the machine into the flow algebra. The produced state stream
// carries []Iteration values.
func (m *Machine) Flow() weave.Flow {
	return weave.RawFlow(func(actions stream.Observable[any]) stream.Observable[any] {
		return m.run(actions)
	})
}

type pendingTransition struct {
	dir     Direction
	started bool
	timer   stream.Timer
}

type iteration struct {
	key     int
	state   any
	pending *pendingTransition
}

func (m *Machine) run(actions stream.Observable[any]) stream.Observable[any] {
	child := m.child.Run(actions)
	return func(obs stream.Observer[any]) stream.Subscription {
		var (
			mu         sync.Mutex
			iters      []*iteration
			nextKey    int
			closed     bool
			flushTimer stream.Timer
		)

		emitLocked := func() {
			out := make([]Iteration, len(iters))
			for i, it := range iters {
				out[i] = Iteration{Key: it.key, State: it.state}
				if it.pending != nil {
					d := it.pending.dir
					out[i].Transition = &d
				}
			}
			obs.Next(out)
		}

		// scheduleFlush coalesces end-event resolutions: the first one arms
		// the window, later ones within it piggyback on the same emission.
		scheduleFlush := func() {
			if flushTimer != nil {
				return
			}
			flushTimer = m.clock.AfterFunc(endDebounce, func() {
				mu.Lock()
				defer mu.Unlock()
				flushTimer = nil
				if closed {
					return
				}
				emitLocked()
			})
		}

		removeLocked := func(key int) {
			for i, it := range iters {
				if it.key == key {
					iters = append(iters[:i], iters[i+1:]...)
					return
				}
			}
		}

		// resolveLocked finishes a pending transition: an outgoing iteration
		// is dropped, an incoming one settles in place.
		resolveLocked := func(it *iteration) {
			if it.pending.timer != nil {
				it.pending.timer.Stop()
			}
			if it.pending.dir == Out {
				removeLocked(it.key)
			} else {
				it.pending = nil
			}
		}

		armLocked := func(it *iteration, d time.Duration) {
			if it.pending.timer != nil {
				it.pending.timer.Stop()
			}
			key := it.key
			it.pending.timer = m.clock.AfterFunc(d, func() {
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}
				for _, live := range iters {
					if live.key == key && live.pending != nil {
						resolveLocked(live)
						emitLocked()
						return
					}
				}
			})
		}

		findLocked := func(key int) *iteration {
			for _, it := range iters {
				if it.key == key {
					return it
				}
			}
			return nil
		}

		stopAllLocked := func() {
			for _, it := range iters {
				if it.pending != nil && it.pending.timer != nil {
					it.pending.timer.Stop()
				}
			}
			if flushTimer != nil {
				flushTimer.Stop()
				flushTimer = nil
			}
		}

		childSub := child.Subscribe(stream.Observer[any]{
			Next: func(s any) {
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}
				if len(iters) == 0 {
					it := &iteration{key: nextKey, state: s}
					nextKey++
					if m.decide(nil, false, s) == Both {
						it.pending = &pendingTransition{dir: In}
						armLocked(it, graceUnstarted)
					}
					iters = append(iters, it)
					emitLocked()
					return
				}

				cur := iters[len(iters)-1]
				if m.decide(cur.state, true, s) == None {
					cur.state = s
					if cur.pending != nil {
						if cur.pending.timer != nil {
							cur.pending.timer.Stop()
						}
						cur.pending = nil
					}
					emitLocked()
					return
				}

				// the current iteration swings outward even if it was still
				// entering; its start history does not carry over
				cur.pending = &pendingTransition{dir: Out}
				armLocked(cur, graceUnstarted)

				in := &iteration{
					key:     nextKey,
					state:   s,
					pending: &pendingTransition{dir: In},
				}
				nextKey++
				armLocked(in, graceUnstarted)
				iters = append(iters, in)
				emitLocked()
			},
			Err: func(err error) {
				mu.Lock()
				closed = true
				stopAllLocked()
				mu.Unlock()
				obs.Err(err)
			},
			Complete: func() {
				mu.Lock()
				closed = true
				stopAllLocked()
				mu.Unlock()
				obs.Complete()
			},
		})

		eventSub := m.events.Subscribe(stream.Observer[Event]{
			Next: func(ev Event) {
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}
				it := findLocked(ev.Key)
				if it == nil || it.pending == nil || it.pending.dir != ev.Dir {
					return // stale event, wrong iteration or direction
				}
				switch ev.Kind {
				case Start:
					it.pending.started = true
					armLocked(it, graceStarted)
				case End:
					resolveLocked(it)
					scheduleFlush()
				}
			},
			Err: func(err error) {
				mu.Lock()
				closed = true
				stopAllLocked()
				mu.Unlock()
				obs.Err(err)
			},
		})

		return stream.NewSubscription(func() {
			mu.Lock()
			closed = true
			stopAllLocked()
			mu.Unlock()
			childSub.Unsubscribe()
			eventSub.Unsubscribe()
		})
	}
}
