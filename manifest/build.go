package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/stream"
)

// Build turns the definition into a part tree. JSONPath expressions are
// compiled here so an invalid binding fails at load time, named by the
// offending node's path, not during rendering.
func (d *Definition) Build() (weave.Part, error) {
	if d.Root == nil {
		return nil, fmt.Errorf("manifest %q has no root", d.Name)
	}
	return buildPart(d.Root, []string{"root"})
}

func buildPart(def *NodeDef, path []string) (weave.Part, error) {
	switch def.Kind {
	case "element", "text", "bind":
		render, err := compileRender(def, path)
		if err != nil {
			return nil, err
		}
		return weave.NewNode[any, any](nodeName(def, path), func(state stream.Observable[any], notify func(any)) weave.Renderable {
			return render(state, notify)
		}), nil

	case "knot":
		if len(def.Slots) == 0 {
			return nil, fmt.Errorf("node %s: knot needs at least one slot", joinPath(path))
		}
		keys := make([]string, 0, len(def.Slots))
		children := make(map[string]weave.Part, len(def.Slots))
		for key := range def.Slots {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child, err := buildPart(def.Slots[key], append(path, key))
			if err != nil {
				return nil, err
			}
			children[key] = child
		}
		tag := def.Tag
		if tag == "" {
			tag = "div"
		}
		grid := weave.NewGrid[weave.None, weave.None](nodeName(def, path), keys,
			func(slots map[string]weave.Renderable, _ stream.Observable[weave.None], _ func(weave.None)) weave.Renderable {
				out := make([]weave.Renderable, 0, len(keys))
				for _, key := range keys {
					out = append(out, slots[key])
				}
				return weave.Element{Tag: tag, Attrs: def.Attrs, Children: out}
			})
		return weave.NewKnot(grid, children)

	case "list":
		if def.Item == nil {
			return nil, fmt.Errorf("node %s: list needs an item template", joinPath(path))
		}
		item, err := buildPart(def.Item, append(path, "item"))
		if err != nil {
			return nil, err
		}
		return weave.NewList(weave.MapFold, item), nil

	case "union":
		if len(def.Members) == 0 {
			return nil, fmt.Errorf("node %s: union needs at least one member", joinPath(path))
		}
		tag := def.Tag
		if tag == "" {
			tag = "kind"
		}
		members := make(map[string]weave.Part, len(def.Members))
		for key, m := range def.Members {
			member, err := buildPart(m, append(path, key))
			if err != nil {
				return nil, err
			}
			members[key] = member
		}
		return weave.NewUnion(tag, members)

	default:
		return nil, fmt.Errorf("node %s: unknown kind %q", joinPath(path), def.Kind)
	}
}

// compileRender resolves a display subtree (element/text/bind) into a render
// function with every JSONPath precompiled.
func compileRender(def *NodeDef, path []string) (func(stream.Observable[any], func(any)) weave.Renderable, error) {
	switch def.Kind {
	case "text":
		r := weave.Text{Value: def.Value}
		return func(stream.Observable[any], func(any)) weave.Renderable { return r }, nil

	case "bind":
		expr, err := jp.ParseString(def.Path)
		if err != nil {
			return nil, fmt.Errorf("node %s: invalid JSONPath %q: %w", joinPath(path), def.Path, err)
		}
		return func(state stream.Observable[any], _ func(any)) weave.Renderable {
			return weave.Bind{Source: stream.Map(state, resolve(expr))}
		}, nil

	case "element":
		attrExprs := make(map[string]jp.Expr, len(def.BindAttrs))
		for attr, p := range def.BindAttrs {
			expr, err := jp.ParseString(p)
			if err != nil {
				return nil, fmt.Errorf("node %s: attribute %q: invalid JSONPath %q: %w", joinPath(path), attr, p, err)
			}
			attrExprs[attr] = expr
		}
		children := make([]func(stream.Observable[any], func(any)) weave.Renderable, len(def.Children))
		for i, c := range def.Children {
			child, err := compileRender(c, append(path, fmt.Sprintf("%d", i)))
			if err != nil {
				return nil, err
			}
			children[i] = child
		}

		return func(state stream.Observable[any], notify func(any)) weave.Renderable {
			el := weave.Element{Tag: def.Tag, Attrs: def.Attrs}
			if len(attrExprs) > 0 {
				el.BindAttrs = make(map[string]stream.Observable[string], len(attrExprs))
				for attr, expr := range attrExprs {
					el.BindAttrs[attr] = stream.Map(state, resolve(expr))
				}
			}
			if len(def.On) > 0 {
				el.On = make(map[string]func(), len(def.On))
				for event, action := range def.On {
					a := action
					el.On[event] = func() { notify(a) }
				}
			}
			for _, child := range children {
				el.Children = append(el.Children, child(state, notify))
			}
			return el
		}, nil

	default:
		return nil, fmt.Errorf("node %s: kind %q cannot appear inside an element subtree", joinPath(path), def.Kind)
	}
}

// resolve formats the first JSONPath match in a state snapshot, empty when
// nothing matches.
func resolve(expr jp.Expr) func(any) string {
	return func(state any) string {
		results := expr.Get(state)
		if len(results) == 0 {
			return ""
		}
		return fmt.Sprintf("%v", results[0])
	}
}

func nodeName(def *NodeDef, path []string) string {
	if def.Name != "" {
		return def.Name
	}
	return joinPath(path)
}

func joinPath(path []string) string {
	return strings.Join(path, "/")
}
