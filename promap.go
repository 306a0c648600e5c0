package weave

import (
	"fmt"

	"github.com/weaveui/weave/stream"
)

// Identity is the identity adapter for Promap.
func Identity(v any) any { return v }

// Promap applies a contravariant transform to a part's incoming state and a
// covariant transform to its outgoing actions: directly for a Node or Grid,
// to the owning grid only for a Knot (children declarations are left alone),
// and to the wrapped child/template for Composite and List. Union is
// unsupported.
//
// Identity adapters yield a part behaviorally indistinguishable from the
// original, and composing two Promaps equals one Promap with composed
// adapters; the transformed part's static types are erased, so mount it with
// WithoutValidation.
func Promap(p Part, stateAdapter, actionAdapter func(any) any) (Part, error) {
	switch v := p.(type) {
	case *Node:
		c := *v
		c.render = promapRender(v.render, stateAdapter, actionAdapter)
		c.state, c.action = nil, nil
		return &c, nil
	case *Grid:
		return promapGrid(v, stateAdapter, actionAdapter), nil
	case *Knot:
		return &Knot{
			grid:     promapGrid(v.grid, stateAdapter, actionAdapter),
			children: v.children,
		}, nil
	case *Composite:
		child, err := Promap(v.child, stateAdapter, actionAdapter)
		if err != nil {
			return nil, err
		}
		return &Composite{grid: v.grid, child: child}, nil
	case *List:
		template, err := Promap(v.of, stateAdapter, actionAdapter)
		if err != nil {
			return nil, err
		}
		return NewList(v.fold, template), nil
	case *Union:
		return nil, fmt.Errorf("%w: promap over union", ErrUnsupportedVariant)
	default:
		return nil, fmt.Errorf("%w: promap got %T", ErrUnsupportedVariant, p)
	}
}

func promapRender(
	render func(stream.Observable[any], func(any)) Renderable,
	stateAdapter, actionAdapter func(any) any,
) func(stream.Observable[any], func(any)) Renderable {
	return func(state stream.Observable[any], notify func(any)) Renderable {
		return render(stream.Map(state, stateAdapter), func(a any) {
			notify(actionAdapter(a))
		})
	}
}

func promapGrid(g *Grid, stateAdapter, actionAdapter func(any) any) *Grid {
	orig := g.render
	c := *g
	c.render = func(slots map[string]Renderable, state stream.Observable[any], notify func(any)) Renderable {
		return orig(slots, stream.Map(state, stateAdapter), func(a any) {
			notify(actionAdapter(a))
		})
	}
	c.state, c.action = nil, nil
	return &c
}
