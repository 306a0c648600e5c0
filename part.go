package weave

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/weaveui/weave/stream"
)

// RootKey is the reserved key under which a Knot's own grid contributes
// state and actions, alongside its children's keys.
const RootKey = "$root"

// None marks a unit that contributes no state (or emits no action).
type None struct{}

// KeyedAction tags an action with the child key that produced it. Nested
// parts produce nested KeyedAction values, so a deeply originated action
// carries the full chain of keys from the mount point down.
type KeyedAction struct {
	Key    string
	Action any
}

// Part is a composable UI unit. The variant set is closed: Node, Grid, Knot,
// Composite, List and Union, all constructed through this package so that
// shape invariants hold by construction.
type Part interface {
	// StateType reports the state type the part directly expects, when
	// statically known. nil means dynamically typed.
	StateType() reflect.Type

	// ActionType reports the action type the part emits, when statically
	// known. nil means dynamically typed.
	ActionType() reflect.Type

	variant() string
}

var (
	noneType     = reflect.TypeOf(None{})
	keyedType    = reflect.TypeOf(KeyedAction{})
	stateMapType = reflect.TypeOf(map[string]any{})
)

// typeFor resolves a type parameter to validation metadata: nil for `any`
// (dynamic, skip validation), noneType for None.
func typeFor[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return nil
	}
	return t
}

func isNone(t reflect.Type) bool { return t == noneType }

// assertAs converts a dynamically typed value at a state/action boundary,
// failing loudly on a mismatch so incomplete composition surfaces during
// development instead of silently defaulting.
func assertAs[T any](where string) func(any) T {
	return func(v any) T {
		if v == nil {
			var zero T
			return zero
		}
		t, ok := v.(T)
		if !ok {
			panic(fmt.Errorf("%w: %s expected %T, got %T (%v)", ErrInvalidState, where, *new(T), v, v))
		}
		return t
	}
}

// Node is an opaque leaf: a render function over its own state stream and
// notify function. Terminal in composition.
type Node struct {
	name   string
	render func(state stream.Observable[any], notify func(any)) Renderable
	state  reflect.Type
	action reflect.Type
}

// NewNode creates a leaf part with compile-time state/action typing. Use
// None for a unit with no state or no actions; use any to opt out of
// validation.
func NewNode[S, A any](name string, render func(state stream.Observable[S], notify func(A)) Renderable) *Node {
	return &Node{
		name: name,
		render: func(state stream.Observable[any], notify func(any)) Renderable {
			return render(
				stream.Map(state, assertAs[S]("node "+name)),
				func(a A) { notify(a) },
			)
		},
		state:  typeFor[S](),
		action: typeFor[A](),
	}
}

func (n *Node) Name() string             { return n.name }
func (n *Node) StateType() reflect.Type  { return n.state }
func (n *Node) ActionType() reflect.Type { return n.action }
func (n *Node) variant() string          { return "node" }

// Grid is a render function exposing named slots filled by children. The
// grid itself supplies no children; pairing it with them is a Knot's job.
type Grid struct {
	name   string
	slots  []string
	render func(slots map[string]Renderable, state stream.Observable[any], notify func(any)) Renderable
	state  reflect.Type
	action reflect.Type
}

// NewGrid creates a slotted part with compile-time state/action typing.
func NewGrid[S, A any](name string, slots []string, render func(slots map[string]Renderable, state stream.Observable[S], notify func(A)) Renderable) *Grid {
	return &Grid{
		name:  name,
		slots: append([]string(nil), slots...),
		render: func(slots map[string]Renderable, state stream.Observable[any], notify func(any)) Renderable {
			return render(
				slots,
				stream.Map(state, assertAs[S]("grid "+name)),
				func(a A) { notify(a) },
			)
		},
		state:  typeFor[S](),
		action: typeFor[A](),
	}
}

func (g *Grid) Name() string             { return g.name }
func (g *Grid) Slots() []string          { return append([]string(nil), g.slots...) }
func (g *Grid) StateType() reflect.Type  { return g.state }
func (g *Grid) ActionType() reflect.Type { return g.action }
func (g *Grid) variant() string          { return "grid" }

// Knot pairs a Grid with a record of children, one per slot.
type Knot struct {
	grid     *Grid
	children map[string]Part
}

// NewKnot pairs grid with children. The children keys must exactly match the
// grid's slot set: no missing slot, no extra child.
func NewKnot(grid *Grid, children map[string]Part) (*Knot, error) {
	want := make(map[string]bool, len(grid.slots))
	for _, s := range grid.slots {
		if s == RootKey {
			return nil, fmt.Errorf("%w: slot name %q is reserved", ErrShape, RootKey)
		}
		want[s] = true
	}
	for key := range children {
		if !want[key] {
			return nil, fmt.Errorf("%w: child %q has no matching slot in grid %q", ErrShape, key, grid.name)
		}
	}
	for _, s := range grid.slots {
		if _, ok := children[s]; !ok {
			return nil, fmt.Errorf("%w: slot %q of grid %q has no child", ErrShape, s, grid.name)
		}
	}
	kids := make(map[string]Part, len(children))
	for k, v := range children {
		kids[k] = v
	}
	return &Knot{grid: grid, children: kids}, nil
}

// MustKnot is NewKnot panicking on error, for statically known-good trees.
func MustKnot(grid *Grid, children map[string]Part) *Knot {
	k, err := NewKnot(grid, children)
	if err != nil {
		panic(err)
	}
	return k
}

func (k *Knot) Grid() *Grid { return k.grid }

// Children returns the child record, keyed by slot.
func (k *Knot) Children() map[string]Part {
	out := make(map[string]Part, len(k.children))
	for key, c := range k.children {
		out[key] = c
	}
	return out
}

// childKeys returns slot order for deterministic traversal.
func (k *Knot) childKeys() []string {
	keys := append([]string(nil), k.grid.slots...)
	sort.Strings(keys)
	return keys
}

func (k *Knot) StateType() reflect.Type  { return stateMapType }
func (k *Knot) ActionType() reflect.Type { return keyedType }
func (k *Knot) variant() string          { return "knot" }

// Composite wraps exactly one child in a single-slot grid that itself has
// neither state nor actions; the child shares the parent's state and action
// verbatim.
type Composite struct {
	grid  *Grid
	child Part
}

// NewComposite validates that grid has exactly one slot and declares neither
// state nor actions.
func NewComposite(grid *Grid, child Part) (*Composite, error) {
	if len(grid.slots) != 1 {
		return nil, fmt.Errorf("%w: composite grid %q must have exactly one slot, has %d", ErrShape, grid.name, len(grid.slots))
	}
	if !isNone(grid.state) {
		return nil, fmt.Errorf("%w: composite grid %q must be stateless (state None)", ErrShape, grid.name)
	}
	if !isNone(grid.action) {
		return nil, fmt.Errorf("%w: composite grid %q must be actionless (action None)", ErrShape, grid.name)
	}
	return &Composite{grid: grid, child: child}, nil
}

// MustComposite is NewComposite panicking on error.
func MustComposite(grid *Grid, child Part) *Composite {
	c, err := NewComposite(grid, child)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Composite) Grid() *Grid              { return c.grid }
func (c *Composite) Child() Part              { return c.child }
func (c *Composite) StateType() reflect.Type  { return c.child.StateType() }
func (c *Composite) ActionType() reflect.Type { return c.child.ActionType() }
func (c *Composite) variant() string          { return "composite" }

// List repeats one template part over a foldable collection; all elements
// share the identical part definition, only the key set varies at runtime.
type List struct {
	fold Foldable
	of   Part
}

// NewList creates a list part traversing its collection state with fold.
func NewList(fold Foldable, template Part) *List {
	return &List{fold: fold, of: template}
}

func (l *List) Foldable() Foldable       { return l.fold }
func (l *List) Of() Part                 { return l.of }
func (l *List) StateType() reflect.Type  { return nil }
func (l *List) ActionType() reflect.Type { return keyedType }
func (l *List) variant() string          { return "list" }

// Union pairs a discriminant tag name with named member parts; exactly one
// member is active at a time, selected by the tag's value in the shared
// state.
type Union struct {
	tag     string
	members map[string]Part
}

// NewUnion creates a union discriminated by the named tag field.
func NewUnion(tag string, members map[string]Part) (*Union, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: union tag name must not be empty", ErrShape)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: union must have at least one member", ErrShape)
	}
	ms := make(map[string]Part, len(members))
	for k, v := range members {
		ms[k] = v
	}
	return &Union{tag: tag, members: ms}, nil
}

// MustUnion is NewUnion panicking on error.
func MustUnion(tag string, members map[string]Part) *Union {
	u, err := NewUnion(tag, members)
	if err != nil {
		panic(err)
	}
	return u
}

func (u *Union) Tag() string { return u.tag }

// Members returns the member record.
func (u *Union) Members() map[string]Part {
	out := make(map[string]Part, len(u.members))
	for k, v := range u.members {
		out[k] = v
	}
	return out
}

func (u *Union) StateType() reflect.Type  { return nil }
func (u *Union) ActionType() reflect.Type { return keyedType }
func (u *Union) variant() string          { return "union" }
