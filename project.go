package weave

import (
	"reflect"

	"github.com/weaveui/weave/stream"
)

// Projection is a stable logical map from key to a per-key reactive
// sub-stream, plus the traversal order of the keys.
type Projection struct {
	Keys  []string
	Cells map[string]stream.Observable[any]
}

// Cell returns the sub-stream for key, or a stream that never emits when the
// key contributes nothing.
func (p Projection) Cell(key string) stream.Observable[any] {
	if c, ok := p.Cells[key]; ok {
		return c
	}
	return stream.Never[any]()
}

// Project turns a snapshot stream of a keyed collection into a stream of
// stable per-key cells.
//
// On each snapshot the key set is diffed against the previous one: a new key
// gets a fresh latest-value cell seeded with its current value; a surviving
// key pushes its new value into the same cell, preserving subscriber
// continuity; a vanished key is dropped (and its cell completed). The outer
// stream emits only when the key set itself changes, so downstream
// re-binding happens on structural change, never on pure value churn.
// Snapshots that are reference-equal to their predecessor are discarded
// before diffing.
func Project(src stream.Observable[any], fold Foldable) stream.Observable[Projection] {
	return func(obs stream.Observer[Projection]) stream.Subscription {
		cells := map[string]*stream.Subject[any]{}
		var prevKeys []string
		var prevSnap any
		hasPrev := false
		first := true

		failAll := func(err error) {
			for _, cell := range cells {
				cell.Error(err)
			}
			cells = map[string]*stream.Subject[any]{}
		}

		sub := src.Subscribe(stream.Observer[any]{
			Next: func(snap any) {
				if hasPrev && sameRef(prevSnap, snap) {
					return
				}
				prevSnap, hasPrev = snap, true

				keys, err := fold.Keys(snap)
				if err != nil {
					failAll(err)
					obs.Err(err)
					return
				}
				changed := first || !equalKeys(prevKeys, keys)
				first = false
				prevKeys = keys

				next := make(map[string]*stream.Subject[any], len(keys))
				for _, key := range keys {
					v, ok := fold.Value(snap, key)
					if !ok {
						continue
					}
					if cell, live := cells[key]; live {
						next[key] = cell
						if cur, has := cell.Value(); !has || !looseEq(cur, v) {
							cell.Next(v)
						}
					} else {
						next[key] = stream.NewBehavior[any](v)
					}
				}
				for key, cell := range cells {
					if _, keep := next[key]; !keep {
						cell.Complete()
					}
				}
				cells = next

				if changed {
					out := make(map[string]stream.Observable[any], len(cells))
					for key, cell := range cells {
						out[key] = cell.Observe()
					}
					obs.Next(Projection{Keys: keys, Cells: out})
				}
			},
			Err: func(err error) {
				failAll(err)
				obs.Err(err)
			},
			Complete: func() {
				for _, cell := range cells {
					cell.Complete()
				}
				obs.Complete()
			},
		})
		return stream.NewSubscription(func() {
			sub.Unsubscribe()
			for _, cell := range cells {
				cell.Complete()
			}
		})
	}
}

// equalKeys is a linear comparison with early exit on the first structural
// mismatch.
func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sameRef reports whether two values are the same reference (or equal
// scalars of comparable type). Used to discard duplicate consecutive
// snapshots cheaply.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Len() == rb.Len() && ra.Pointer() == rb.Pointer()
	default:
		if ra.Type().Comparable() {
			return a == b
		}
		return false
	}
}

// looseEq is sameRef extended with comparable equality, used to avoid
// redelivering an unchanged value into a surviving cell.
func looseEq(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return sameRef(a, b)
}
