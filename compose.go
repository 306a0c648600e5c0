package weave

import (
	"fmt"

	"github.com/weaveui/weave/stream"
)

// actionsFor demultiplexes a keyed action stream down to one child's own
// actions, unwrapped. A non-keyed value reaching a composition boundary is a
// programming error and fails loudly.
func actionsFor(actions stream.Observable[any], key string) stream.Observable[any] {
	return stream.MapFilter(actions, func(a any) (any, bool) {
		ka, ok := a.(KeyedAction)
		if !ok {
			panic(fmt.Errorf("%w: composed flow expected KeyedAction, got %T (%v)", ErrInvalidState, a, a))
		}
		if ka.Key != key {
			return nil, false
		}
		return ka.Action, true
	})
}

// ComposeKnot builds a knot's flow from its children's flows (include a
// RootKey entry when the knot's grid owns state). Incoming actions are
// demultiplexed by child key; the output is the latest-combined record of
// all children's state, republished whenever any one child updates, with
// standard combine-latest gating.
func ComposeKnot(children map[string]Flow) Flow {
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			outs := make(map[string]stream.Observable[any], len(children))
			for key, f := range children {
				outs[key] = f.Run(actionsFor(actions, key))
			}
			return stream.Map(stream.CombineLatestMap(outs), func(m map[string]any) any {
				return m
			})
		},
		action: keyedType,
		state:  stateMapType,
	}
}

// ComposeUnion builds a union's flow. The tag selector observes all incoming
// actions (not just the active member's) and produces the current
// discriminant; the active member's flow runs fed only by its own actions,
// and is resubscribed, cancelling the previous member's subscription, when
// the discriminant changes. The discriminant is merged back into the
// member's emitted state under the named tag field, which requires member
// states to be map[string]any (or nil).
func ComposeUnion(tag string, selectTag func(stream.Observable[any]) stream.Observable[string], members map[string]Flow) Flow {
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			tags := stream.DistinctUntilChanged(selectTag(actions), func(a, b string) bool {
				return a == b
			})
			return stream.SwitchMap(tags, func(t string) stream.Observable[any] {
				member, ok := members[t]
				if !ok {
					panic(fmt.Errorf("%w: union tag %q has no member flow", ErrInvalidState, t))
				}
				st := member.Run(actionsFor(actions, t))
				return stream.Map(st, func(s any) any {
					return injectTag(s, tag, t)
				})
			})
		},
		action: keyedType,
		state:  stateMapType,
	}
}

func injectTag(s any, tag, value string) map[string]any {
	switch m := s.(type) {
	case nil:
		return map[string]any{tag: value}
	case map[string]any:
		out := make(map[string]any, len(m)+1)
		for k, v := range m {
			out[k] = v
		}
		out[tag] = value
		return out
	default:
		panic(fmt.Errorf("%w: union member state must be map[string]any, got %T", ErrInvalidState, s))
	}
}

// ComposeOption routes a single child flow behind a presence discriminant:
// while present the child flow's state passes through, while absent the
// state is nil. Presence changes resubscribe the child, cancelling the
// previous run.
func ComposeOption(child Flow, selectPresent func(stream.Observable[any]) stream.Observable[bool]) Flow {
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			present := stream.DistinctUntilChanged(selectPresent(actions), func(a, b bool) bool {
				return a == b
			})
			return stream.SwitchMap(present, func(p bool) stream.Observable[any] {
				if !p {
					return stream.Just[any](nil)
				}
				return child.Run(actions)
			})
		},
	}
}

// ComposeList runs one flow instance per currently-present key, created
// lazily when the key first appears and torn down when it disappears. Each
// instance is fed only by its own key's actions; the combined output is the
// latest-value record over the live key set, gated until every live key has
// produced a value.
//
// The live key set is driven by the keys observable; actions for keys
// outside the set are dropped.
func ComposeList(keys stream.Observable[[]string], template func(key string) Flow) Flow {
	return Flow{
		run: func(actions stream.Observable[any]) stream.Observable[any] {
			return listRun(keys, template, actions)
		},
		action: keyedType,
		state:  stateMapType,
	}
}

func listRun(keys stream.Observable[[]string], template func(key string) Flow, actions stream.Observable[any]) stream.Observable[any] {
	return func(obs stream.Observer[any]) stream.Subscription {
		type instance struct {
			actions *stream.Subject[any]
			sub     stream.Subscription
			latest  any
			has     bool
		}
		instances := map[string]*instance{}
		var order []string
		closed := false
		updating := false

		emit := func() {
			for _, k := range order {
				inst, ok := instances[k]
				if !ok || !inst.has {
					return
				}
			}
			m := make(map[string]any, len(order))
			for _, k := range order {
				m[k] = instances[k].latest
			}
			obs.Next(m)
		}

		keySub := keys.Subscribe(stream.Observer[[]string]{
			Next: func(ks []string) {
				updating = true
				want := make(map[string]bool, len(ks))
				for _, k := range ks {
					want[k] = true
				}
				for k, inst := range instances {
					if !want[k] {
						inst.sub.Unsubscribe()
						inst.actions.Complete()
						delete(instances, k)
					}
				}
				order = append([]string(nil), ks...)
				for _, k := range ks {
					if _, ok := instances[k]; ok {
						continue
					}
					inst := &instance{actions: stream.NewSubject[any]()}
					instances[k] = inst
					inst.sub = template(k).Run(inst.actions.Observe()).Subscribe(stream.Observer[any]{
						Next: func(v any) {
							inst.latest, inst.has = v, true
							if !closed && !updating {
								emit()
							}
						},
						Err: obs.Err,
					})
				}
				updating = false
				emit()
			},
			Err:      obs.Err,
			Complete: obs.Complete,
		})

		actSub := actions.Subscribe(stream.Observer[any]{
			Next: func(a any) {
				ka, ok := a.(KeyedAction)
				if !ok {
					panic(fmt.Errorf("%w: list flow expected KeyedAction, got %T (%v)", ErrInvalidState, a, a))
				}
				if inst, ok := instances[ka.Key]; ok {
					inst.actions.Next(ka.Action)
				}
			},
			Err: obs.Err,
		})

		return stream.NewSubscription(func() {
			closed = true
			keySub.Unsubscribe()
			actSub.Unsubscribe()
			for _, inst := range instances {
				inst.sub.Unsubscribe()
				inst.actions.Complete()
			}
		})
	}
}
