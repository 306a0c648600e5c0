// Package weave is a declarative composition layer for UI component trees
// whose rendering is driven by reactive state streams and whose user
// interactions surface as reactive action streams.
//
// The composable unit is the Part, a closed set of six variants:
//
//   - Node: an opaque leaf taking a state stream and a notify function and
//     producing a renderable.
//   - Grid: like Node but exposing named slots to be filled by children.
//   - Knot: a Grid paired with one child part per slot.
//   - Composite: a single-slot, stateless Grid wrapped around exactly one
//     child, sharing the parent's state and action verbatim.
//   - List: a per-element template part repeated over a foldable collection.
//   - Union: named member parts of which exactly one is active, selected by
//     a discriminant tag in the shared state.
//
// Type Safety:
// The layer provides three levels of safety when composing and later
// re-customizing (patching) a tree:
//
//   - Compile-time: generic constructors such as NewNode[S, A] tie a unit's
//     render function to its state and action types.
//
//   - Initialization-time: Validate checks a flow's state/action types
//     against the tree's expectations before anything is mounted; shape
//     invariants (slot sets, composite statelessness) are enforced by the
//     constructors so invalid trees are unrepresentable.
//
//   - Runtime: type assertions at the state/action boundaries fail loudly,
//     naming the unexpected value, rather than silently defaulting.
//
// A Flow turns the tree's action stream into its state stream; Mount binds
// the two and produces a Renderable for an external render sink. Patch
// replaces the sub-part at a path while leaving every sibling untouched.
package weave
