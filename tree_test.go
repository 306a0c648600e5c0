package weave_test

import (
	"strconv"
	"testing"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/stream"
)

// buttonNode renders an element named after itself, binding its string state
// as text and notifying "hit" on click.
func buttonNode(name string) *weave.Node {
	return weave.NewNode[string, string](name, func(state stream.Observable[string], notify func(string)) weave.Renderable {
		return weave.Element{
			Tag:      name,
			On:       map[string]func(){"click": func() { notify("hit") }},
			Children: []weave.Renderable{weave.Bind{Source: state}},
		}
	})
}

type dynWatch struct {
	latest weave.Renderable
	count  int
}

func watchDyn(t *testing.T, r weave.Renderable) *dynWatch {
	t.Helper()
	d, ok := r.(weave.Dyn)
	if !ok {
		t.Fatalf("renderable is %T, want Dyn", r)
	}
	w := &dynWatch{}
	d.Source.Subscribe(stream.Observer[weave.Renderable]{
		Next: func(r weave.Renderable) { w.latest = r; w.count++ },
		Err:  func(err error) { t.Errorf("dyn failed: %v", err) },
	})
	return w
}

func findElement(r weave.Renderable, tag string) (weave.Element, bool) {
	switch v := r.(type) {
	case weave.Element:
		if v.Tag == tag {
			return v, true
		}
		for _, c := range v.Children {
			if e, ok := findElement(c, tag); ok {
				return e, true
			}
		}
	case weave.Fragment:
		for _, c := range v.Children {
			if e, ok := findElement(c, tag); ok {
				return e, true
			}
		}
	}
	return weave.Element{}, false
}

func bindText(t *testing.T, el weave.Element) *string {
	t.Helper()
	for _, c := range el.Children {
		if b, ok := c.(weave.Bind); ok {
			text := new(string)
			b.Source.Subscribe(stream.Observer[string]{
				Next: func(s string) { *text = s },
			})
			return text
		}
	}
	t.Fatalf("element %q has no bind", el.Tag)
	return nil
}

func click(t *testing.T, r weave.Renderable, tag string) {
	t.Helper()
	el, ok := findElement(r, tag)
	if !ok {
		t.Fatalf("no element %q in rendered tree", tag)
	}
	el.On["click"]()
}

func TestSquashKnotTagsActionsByPath(t *testing.T) {
	inner := weave.MustKnot(pairGrid("inner"), map[string]weave.Part{
		"left":  buttonNode("deepBtn"),
		"right": buttonNode("deepSibling"),
	})
	root := weave.MustKnot(pairGrid("outer"), map[string]weave.Part{
		"left":  inner,
		"right": buttonNode("topBtn"),
	})

	state := stream.NewBehavior[any](map[string]any{
		"left":  map[string]any{"left": "LL", "right": "LR"},
		"right": "R",
	})
	var actions []any
	r := weave.Squash(root)(state.Observe(), func(a any) { actions = append(actions, a) })

	w := watchDyn(t, r)
	click(t, w.latest, "topBtn")
	if len(actions) != 1 {
		t.Fatalf("actions = %v", actions)
	}
	if got := actions[0].(weave.KeyedAction); got.Key != "right" || got.Action != "hit" {
		t.Fatalf("action = %+v, want right/hit", got)
	}

	// an action from a nested unit carries the full key chain from the root;
	// the nested knot renders as its own reactive subtree
	frag := w.latest.(weave.Fragment)
	innerW := watchDyn(t, frag.Children[0])
	click(t, innerW.latest, "deepBtn")
	outer := actions[1].(weave.KeyedAction)
	if outer.Key != "left" {
		t.Fatalf("outer key = %q, want left", outer.Key)
	}
	innerKA := outer.Action.(weave.KeyedAction)
	if innerKA.Key != "left" || innerKA.Action != "hit" {
		t.Fatalf("inner action = %+v", innerKA)
	}
}

func TestSquashValueChurnKeepsRenderIdentity(t *testing.T) {
	root := weave.MustKnot(pairGrid("g"), map[string]weave.Part{
		"left":  buttonNode("lhs"),
		"right": buttonNode("rhs"),
	})
	state := stream.NewBehavior[any](map[string]any{"left": "1", "right": "x"})
	r := weave.Squash(root)(state.Observe(), func(any) {})
	w := watchDyn(t, r)

	lhs, _ := findElement(w.latest, "lhs")
	text := bindText(t, lhs)
	if *text != "1" {
		t.Fatalf("text = %q, want 1", *text)
	}

	// a pure value update flows through the bound cell; the subtree is not
	// rebuilt
	state.Next(map[string]any{"left": "2", "right": "x"})
	if w.count != 1 {
		t.Fatalf("dyn emissions = %d, want 1 across value-only updates", w.count)
	}
	if *text != "2" {
		t.Fatalf("text = %q, want 2", *text)
	}
}

func TestSquashListCachesPerKeySubtrees(t *testing.T) {
	renders := 0
	template := weave.NewNode[string, string]("item", func(state stream.Observable[string], notify func(string)) weave.Renderable {
		renders++
		return weave.Element{Tag: "item", Children: []weave.Renderable{weave.Bind{Source: state}}}
	})
	list := weave.NewList(weave.MapFold, template)

	state := stream.NewBehavior[any](map[string]any{"x": "1", "y": "2"})
	r := weave.Squash(list)(state.Observe(), func(any) {})
	w := watchDyn(t, r)

	if renders != 2 {
		t.Fatalf("renders = %d, want 2", renders)
	}
	frag := w.latest.(weave.Fragment)
	if len(frag.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(frag.Children))
	}

	// value churn re-renders nothing
	state.Next(map[string]any{"x": "9", "y": "2"})
	if renders != 2 || w.count != 1 {
		t.Fatalf("renders=%d dyn=%d after value churn", renders, w.count)
	}

	// a new key renders only its own subtree
	state.Next(map[string]any{"x": "9", "y": "2", "z": "3"})
	if renders != 3 {
		t.Fatalf("renders = %d, want 3 after adding one key", renders)
	}
	if w.count != 2 {
		t.Fatalf("dyn emissions = %d, want 2", w.count)
	}
}

func TestSquashUnionSwitchesOnTag(t *testing.T) {
	member := func(name string) *weave.Node {
		return weave.NewNode[map[string]any, string](name, func(state stream.Observable[map[string]any], notify func(string)) weave.Renderable {
			return weave.Element{
				Tag: name,
				On:  map[string]func(){"click": func() { notify("hit") }},
				Children: []weave.Renderable{weave.Bind{Source: stream.Map(state, func(m map[string]any) string {
					return m["v"].(string)
				})}},
			}
		})
	}
	u := weave.MustUnion("kind", map[string]weave.Part{
		"on":  member("onView"),
		"off": member("offView"),
	})

	state := stream.NewBehavior[any](map[string]any{"kind": "on", "v": "1"})
	var actions []any
	r := weave.Squash(u)(state.Observe(), func(a any) { actions = append(actions, a) })
	w := watchDyn(t, r)

	el, ok := findElement(w.latest, "onView")
	if !ok {
		t.Fatal("active member not rendered")
	}
	text := bindText(t, el)
	if *text != "1" {
		t.Fatalf("text = %q", *text)
	}

	// same tag: the member's subtree survives, its state updates in place
	state.Next(map[string]any{"kind": "on", "v": "2"})
	if w.count != 1 {
		t.Fatalf("dyn emissions = %d, want 1 while the tag is stable", w.count)
	}
	if *text != "2" {
		t.Fatalf("text = %q, want 2", *text)
	}

	// tag change swaps the rendered member
	state.Next(map[string]any{"kind": "off", "v": "3"})
	if w.count != 2 {
		t.Fatalf("dyn emissions = %d, want 2 after tag change", w.count)
	}
	if _, ok := findElement(w.latest, "offView"); !ok {
		t.Fatal("new member not rendered")
	}

	// actions are namespaced by the member key
	click(t, w.latest, "offView")
	got := actions[len(actions)-1].(weave.KeyedAction)
	if got.Key != "off" || got.Action != "hit" {
		t.Fatalf("action = %+v", got)
	}
}

func TestMountCounter(t *testing.T) {
	counter := weave.NewNode[int, string]("counter", func(state stream.Observable[int], notify func(string)) weave.Renderable {
		return weave.Element{
			Tag:      "div",
			On:       map[string]func(){"click": func() { notify("inc") }},
			Children: []weave.Renderable{weave.Bind{Source: stream.Map(state, strconv.Itoa)}},
		}
	})
	flow := weave.NewFlow[string, int](func(actions stream.Observable[string]) stream.Observable[int] {
		return stream.StartWith(stream.Scan(actions, 0, func(n int, _ string) int { return n + 1 }), 0)
	})

	r, err := weave.Mount(counter, flow)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	el := r.(weave.Element)
	text := bindText(t, el)
	if *text != "0" {
		t.Fatalf("initial text = %q, want 0", *text)
	}
	el.On["click"]()
	if *text != "1" {
		t.Fatalf("text = %q, want 1 after click", *text)
	}
	el.On["click"]()
	if *text != "2" {
		t.Fatalf("text = %q, want 2", *text)
	}
}

func TestMountComposedKnot(t *testing.T) {
	btn := func(name string) *weave.Node {
		return weave.NewNode[int, string](name, func(state stream.Observable[int], notify func(string)) weave.Renderable {
			return weave.Element{
				Tag:      name,
				On:       map[string]func(){"click": func() { notify("inc") }},
				Children: []weave.Renderable{weave.Bind{Source: stream.Map(state, strconv.Itoa)}},
			}
		})
	}
	root := weave.MustKnot(pairGrid("pair"), map[string]weave.Part{
		"left":  btn("lhs"),
		"right": btn("rhs"),
	})
	count := weave.NewFlow[string, int](func(actions stream.Observable[string]) stream.Observable[int] {
		return stream.StartWith(stream.Scan(actions, 0, func(n int, _ string) int { return n + 1 }), 0)
	})
	flow := weave.ComposeKnot(map[string]weave.Flow{"left": count, "right": count})

	r, err := weave.Mount(root, flow)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	w := watchDyn(t, r)
	lhs, _ := findElement(w.latest, "lhs")
	rhs, _ := findElement(w.latest, "rhs")
	lhsText, rhsText := bindText(t, lhs), bindText(t, rhs)

	// a click on one child updates only that child's state
	click(t, w.latest, "lhs")
	if *lhsText != "1" || *rhsText != "0" {
		t.Fatalf("texts = (%q, %q), want (1, 0)", *lhsText, *rhsText)
	}

	// the key set never changed, so the tree was resolved exactly once
	if w.count != 1 {
		t.Fatalf("dyn emissions = %d, want 1", w.count)
	}
}
