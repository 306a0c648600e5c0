package weave

import (
	"reflect"

	"github.com/weaveui/weave/stream"
)

// Flow turns a part's action stream into its state stream. Flows carry
// optional type information so Validate can check them against the part they
// drive before anything runs.
type Flow struct {
	run    func(actions stream.Observable[any]) stream.Observable[any]
	action reflect.Type
	state  reflect.Type
}

// NewFlow creates a typed flow from a function over typed streams. Use any
// for either parameter to opt out of validation.
func NewFlow[A, S any](fn func(actions stream.Observable[A]) stream.Observable[S]) Flow {
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			typed := stream.Map(actions, assertAs[A]("flow action"))
			return stream.Map(fn(typed), func(s S) any { return s })
		},
		action: typeFor[A](),
		state:  typeFor[S](),
	}
}

// RawFlow wraps an untyped action-to-state transform.
func RawFlow(run func(actions stream.Observable[any]) stream.Observable[any]) Flow {
	return Flow{run: run}
}

// Run feeds the action stream through the flow. A zero flow produces a state
// stream that never emits.
func (f Flow) Run(actions stream.Observable[any]) stream.Observable[any] {
	if f.run == nil {
		return stream.Never[any]()
	}
	return f.run(actions)
}

// ActionType reports the flow's expected action type, nil when dynamic.
func (f Flow) ActionType() reflect.Type { return f.action }

// StateType reports the flow's produced state type, nil when dynamic.
func (f Flow) StateType() reflect.Type { return f.state }

// PatchState post-processes the flow's state output.
func (f Flow) PatchState(post func(stream.Observable[any]) stream.Observable[any]) Flow {
	prev := f
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			return post(prev.Run(actions))
		},
		action: f.action,
	}
}

// ExtendActions pre-processes the action input; the original pipeline still
// runs, on the transformed stream.
func (f Flow) ExtendActions(pre func(stream.Observable[any]) stream.Observable[any]) Flow {
	prev := f
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			return prev.Run(pre(actions))
		},
		state: f.state,
	}
}

// ReplaceActions substitutes the action pipeline outright. The original
// pipeline never runs, so any side effects it carried do not fire; only the
// flow's type metadata is kept.
func (f Flow) ReplaceActions(run func(stream.Observable[any]) stream.Observable[any]) Flow {
	return Flow{run: run, action: f.action, state: f.state}
}

// Patch composes an action pre-processing and a state post-processing step
// around the flow.
func (f Flow) Patch(pre, post func(stream.Observable[any]) stream.Observable[any]) Flow {
	prev := f
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			return post(prev.Run(pre(actions)))
		},
	}
}

// FromSideEffect builds a flow that invokes effect once per incoming action
// purely for its side effect; the action pipeline contributes no state
// values. The returned state stream is driven entirely by source; pass
// stream.Just for a constant.
func FromSideEffect(effect func(any), source stream.Observable[any]) Flow {
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			silenced := stream.IgnoreElements[any, any](stream.Tap(actions, effect))
			return stream.Merge(source, silenced)
		},
	}
}
