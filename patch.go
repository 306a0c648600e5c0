package weave

import (
	"fmt"
	"reflect"
)

// Decompose extracts the state/action type pair directly owned by a part:
// a Node's or Grid's own pair, a Knot's grid pair; List and Composite
// delegate to their wrapped child. A Union owns no pair of its own.
func Decompose(p Part) (state, action reflect.Type, err error) {
	switch v := p.(type) {
	case *Node:
		return v.state, v.action, nil
	case *Grid:
		return v.state, v.action, nil
	case *Knot:
		return v.grid.state, v.grid.action, nil
	case *Composite:
		return Decompose(v.child)
	case *List:
		return Decompose(v.of)
	case *Union:
		return nil, nil, fmt.Errorf("%w: union owns no state/action pair", ErrUnsupportedVariant)
	default:
		return nil, nil, fmt.Errorf("%w: decompose got %T", ErrUnsupportedVariant, p)
	}
}

// Recompose rebuilds an equivalent part shape with a replacement
// state/action type pair substituted at the same structural position a
// Decompose would read from.
func Recompose(p Part, state, action reflect.Type) (Part, error) {
	switch v := p.(type) {
	case *Node:
		c := *v
		c.state, c.action = state, action
		return &c, nil
	case *Grid:
		c := *v
		c.state, c.action = state, action
		return &c, nil
	case *Knot:
		g := *v.grid
		g.state, g.action = state, action
		return NewKnot(&g, v.children)
	case *Composite:
		child, err := Recompose(v.child, state, action)
		if err != nil {
			return nil, err
		}
		return NewComposite(v.grid, child)
	case *List:
		inner, err := Recompose(v.of, state, action)
		if err != nil {
			return nil, err
		}
		return NewList(v.fold, inner), nil
	case *Union:
		return nil, fmt.Errorf("%w: union owns no state/action pair", ErrUnsupportedVariant)
	default:
		return nil, fmt.Errorf("%w: recompose got %T", ErrUnsupportedVariant, p)
	}
}

// Focus returns the sub-part reachable by descending into Knot children or
// Union members along path. Composite and List wrappers are passed through
// without consuming a path segment. An empty path focuses the part itself.
func Focus(p Part, path ...string) (Part, error) {
	if len(path) == 0 {
		return p, nil
	}
	switch v := p.(type) {
	case *Composite:
		return Focus(v.child, path...)
	case *List:
		return Focus(v.of, path...)
	case *Knot:
		child, ok := v.children[path[0]]
		if !ok {
			return nil, fmt.Errorf("%w: knot has no child %q", ErrPathNotFound, path[0])
		}
		return Focus(child, path[1:]...)
	case *Union:
		member, ok := v.members[path[0]]
		if !ok {
			return nil, fmt.Errorf("%w: union has no member %q", ErrPathNotFound, path[0])
		}
		return Focus(member, path[1:]...)
	default:
		return nil, fmt.Errorf("%w: cannot descend into %s at %q", ErrPathNotFound, v.variant(), path[0])
	}
}

// Replace rebuilds the tree with exactly the node at path replaced by sub,
// leaving every other node's declaration untouched. An empty path replaces
// the root.
func Replace(p Part, path []string, sub Part) (Part, error) {
	if len(path) == 0 {
		return sub, nil
	}
	switch v := p.(type) {
	case *Composite:
		child, err := Replace(v.child, path, sub)
		if err != nil {
			return nil, err
		}
		return NewComposite(v.grid, child)
	case *List:
		inner, err := Replace(v.of, path, sub)
		if err != nil {
			return nil, err
		}
		return NewList(v.fold, inner), nil
	case *Knot:
		child, ok := v.children[path[0]]
		if !ok {
			return nil, fmt.Errorf("%w: knot has no child %q", ErrPathNotFound, path[0])
		}
		replaced, err := Replace(child, path[1:], sub)
		if err != nil {
			return nil, err
		}
		children := v.Children()
		children[path[0]] = replaced
		return NewKnot(v.grid, children)
	case *Union:
		member, ok := v.members[path[0]]
		if !ok {
			return nil, fmt.Errorf("%w: union has no member %q", ErrPathNotFound, path[0])
		}
		replaced, err := Replace(member, path[1:], sub)
		if err != nil {
			return nil, err
		}
		members := v.Members()
		members[path[0]] = replaced
		return NewUnion(v.tag, members)
	default:
		return nil, fmt.Errorf("%w: cannot descend into %s at %q", ErrPathNotFound, v.variant(), path[0])
	}
}

// Patch returns a surgical editor for the sub-part at path: given a
// transform f, it produces a function rebuilding a root tree with
// f(sub-part) substituted at path and every sibling untouched. The formal
// contract is Replace(tree, path, f(Focus(tree, path))).
func Patch(path ...string) func(f func(Part) Part) func(root Part) (Part, error) {
	return func(f func(Part) Part) func(root Part) (Part, error) {
		return func(root Part) (Part, error) {
			cur, err := Focus(root, path...)
			if err != nil {
				return nil, err
			}
			return Replace(root, path, f(cur))
		}
	}
}
