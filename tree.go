package weave

import (
	"fmt"

	"github.com/weaveui/weave/stream"
)

// Squashed is a fully resolved tree: a builder from one state stream and one
// action sink to a renderable.
type Squashed func(state stream.Observable[any], notify func(any)) Renderable

// Squash recursively resolves a part tree into a single renderable builder
// bound to one state/action pair.
//
// Structural operations only (new or removed keys, union tag changes)
// trigger re-resolution of a subtree; value-only updates flow through the
// already-bound sub-streams, so render identity is preserved across pure
// value churn.
func Squash(p Part) Squashed {
	switch v := p.(type) {
	case *Node:
		return v.render
	case *Grid:
		// A bare grid renders with all slots absent.
		return func(state stream.Observable[any], notify func(any)) Renderable {
			slots := make(map[string]Renderable, len(v.slots))
			for _, s := range v.slots {
				slots[s] = Nothing{}
			}
			return v.render(slots, state, notify)
		}
	case *Composite:
		return squashComposite(v)
	case *Knot:
		return squashKnot(v)
	case *List:
		return squashList(v)
	case *Union:
		return squashUnion(v)
	default:
		panic(fmt.Errorf("%w: squash got unexpected part %T", ErrUnsupportedVariant, p))
	}
}

// squashComposite indirects the grid's single slot to the squashed child,
// bound to the mount point's own state and notify: a composite shares its
// parent's state and action verbatim, and its grid owns neither.
func squashComposite(c *Composite) Squashed {
	child := Squash(c.child)
	slot := c.grid.slots[0]
	return func(state stream.Observable[any], notify func(any)) Renderable {
		childState := state
		if isNone(c.child.StateType()) {
			childState = stream.Never[any]()
		}
		inner := child(childState, notify)
		return c.grid.render(
			map[string]Renderable{slot: inner},
			stream.Never[any](),
			func(any) {},
		)
	}
}

// squashKnot projects the composed state record into one cell per child key
// plus the reserved root key, namespaces each child's actions by its key,
// and invokes the grid with the rendered slots.
func squashKnot(k *Knot) Squashed {
	children := k.children
	rendered := make(map[string]Squashed, len(children))
	for key, child := range children {
		rendered[key] = Squash(child)
	}
	keys := append(k.childKeys(), RootKey)
	fold := recordFold{keys: keys}

	return func(state stream.Observable[any], notify func(any)) Renderable {
		proj := Project(state, fold)
		return Dyn{Source: stream.Map(proj, func(p Projection) Renderable {
			slots := make(map[string]Renderable, len(children))
			for key, build := range rendered {
				cs := p.Cell(key)
				if isNone(children[key].StateType()) {
					cs = stream.Never[any]()
				}
				childKey := key
				slots[key] = build(cs, func(a any) {
					notify(KeyedAction{Key: childKey, Action: a})
				})
			}
			return k.grid.render(slots, p.Cell(RootKey), func(a any) {
				notify(KeyedAction{Key: RootKey, Action: a})
			})
		})}
	}
}

// squashList projects the collection into per-key cells and renders the
// template once per live key, caching each key's subtree so unrelated key
// churn does not re-resolve untouched elements.
func squashList(l *List) Squashed {
	template := Squash(l.of)
	return func(state stream.Observable[any], notify func(any)) Renderable {
		proj := Project(state, l.fold)
		cache := map[string]Renderable{}
		return Dyn{Source: stream.Map(proj, func(p Projection) Renderable {
			out := make([]Renderable, 0, len(p.Keys))
			next := make(map[string]Renderable, len(p.Keys))
			for _, key := range p.Keys {
				r, ok := cache[key]
				if !ok {
					elemKey := key
					r = template(p.Cell(key), func(a any) {
						notify(KeyedAction{Key: elemKey, Action: a})
					})
				}
				next[key] = r
				if _, absent := r.(Nothing); !absent {
					out = append(out, r)
				}
			}
			cache = next
			return Fragment{Children: out}
		})}
	}
}

// squashUnion renders exactly the active member, switching (and therefore
// unmounting the previous member's subtree) when the discriminant changes.
func squashUnion(u *Union) Squashed {
	rendered := make(map[string]Squashed, len(u.members))
	for key, member := range u.members {
		rendered[key] = Squash(member)
	}
	return func(state stream.Observable[any], notify func(any)) Renderable {
		groups := GroupByTag(state, u.tag)
		return Dyn{Source: stream.Map(groups, func(g Group) Renderable {
			build, ok := rendered[g.Tag]
			if !ok {
				panic(fmt.Errorf("%w: union tag %q has no member part", ErrInvalidState, g.Tag))
			}
			memberKey := g.Tag
			return build(g.Values, func(a any) {
				notify(KeyedAction{Key: memberKey, Action: a})
			})
		})}
	}
}

// MountOption configures Mount.
type MountOption func(*mountOptions)

type mountOptions struct {
	logger   Logger
	validate bool
}

// WithLogger adds action logging to the mounted tree.
func WithLogger(l Logger) MountOption {
	return func(o *mountOptions) {
		o.logger = l
	}
}

// WithoutValidation skips the initialization-time type check, for parts
// whose types were erased by Promap.
func WithoutValidation() MountOption {
	return func(o *mountOptions) {
		o.validate = false
	}
}

// Mount binds a flow to a part and returns the renderable the render sink
// materializes.
//
// One action channel is created; the flow turns it into the state stream,
// which is multicast with a refcount so every internal consumer of the same
// state position shares one upstream subscription, late subscribers receive
// the latest value while the mount is live, and the retained value is
// dropped when the last subscriber disconnects, so a remount never observes
// a previous mount's leftover state. The mounted tree's lifecycle is owned by
// the sink: it begins on first subscription and ends when the sink disposes,
// releasing every internal subscription.
func Mount(p Part, f Flow, opts ...MountOption) (Renderable, error) {
	o := mountOptions{logger: NopLogger, validate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.validate {
		if err := Validate(p, f); err != nil {
			return nil, err
		}
	}

	actions := stream.NewSubject[any]()
	state := stream.Share(f.Run(actions.Observe()))
	notify := func(a any) {
		o.logger.Debug("action", "value", a)
		actions.Next(a)
	}
	return Squash(p)(state, notify), nil
}
