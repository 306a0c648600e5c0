package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/manifest"
	"github.com/weaveui/weave/stream"
)

const counterDoc = `
name: counter
version: "1.0"
root:
  kind: element
  name: counter
  tag: div
  attrs:
    class: counter
  bindAttrs:
    title: $.label
  on:
    click: inc
  children:
    - kind: bind
      path: $.count
    - kind: text
      value: " clicks"
`

func TestLoadAndBuildElement(t *testing.T) {
	def, err := manifest.LoadString(counterDoc)
	require.NoError(t, err)
	assert.Equal(t, "counter", def.Name)

	part, err := def.Build()
	require.NoError(t, err)
	node, ok := part.(*weave.Node)
	require.True(t, ok, "display subtree builds a node, got %T", part)
	assert.Equal(t, "counter", node.Name())

	state := stream.NewBehavior[any](map[string]any{"count": 42, "label": "Counter"})
	var actions []any
	r := weave.Squash(part)(state.Observe(), func(a any) { actions = append(actions, a) })

	el, ok := r.(weave.Element)
	require.True(t, ok)
	assert.Equal(t, "div", el.Tag)
	assert.Equal(t, "counter", el.Attrs["class"])

	var text string
	el.Children[0].(weave.Bind).Source.Subscribe(stream.Observer[string]{
		Next: func(s string) { text = s },
	})
	assert.Equal(t, "42", text)
	assert.Equal(t, weave.Text{Value: " clicks"}, el.Children[1])

	var title string
	el.BindAttrs["title"].Subscribe(stream.Observer[string]{
		Next: func(s string) { title = s },
	})
	assert.Equal(t, "Counter", title)

	el.On["click"]()
	require.Equal(t, []any{"inc"}, actions)
}

func TestBuildStructuralKinds(t *testing.T) {
	def, err := manifest.LoadString(`
name: page
root:
  kind: knot
  tag: main
  slots:
    header:
      kind: text
      value: Title
    body:
      kind: list
      item:
        kind: bind
        path: $.title
    status:
      kind: union
      tag: phase
      members:
        loading:
          kind: text
          value: "..."
        ready:
          kind: bind
          path: $.phase
`)
	require.NoError(t, err)

	part, err := def.Build()
	require.NoError(t, err)
	knot, ok := part.(*weave.Knot)
	require.True(t, ok, "got %T", part)

	body, err := weave.Focus(knot, "body")
	require.NoError(t, err)
	require.IsType(t, &weave.List{}, body)

	status, err := weave.Focus(knot, "status")
	require.NoError(t, err)
	union, ok := status.(*weave.Union)
	require.True(t, ok)
	assert.Equal(t, "phase", union.Tag())
	assert.Len(t, union.Members(), 2)
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing name", doc: "root: {kind: text, value: hi}"},
		{name: "missing root", doc: "name: x"},
		{name: "unknown kind", doc: "name: x\nroot: {kind: widget}"},
		{name: "empty bind path", doc: "name: x\nroot: {kind: bind, path: \"\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.LoadString(tt.doc)
			require.Error(t, err)
		})
	}
}

func TestBuildRejectsBadBindings(t *testing.T) {
	def, err := manifest.LoadString(`
name: broken
root:
  kind: element
  tag: div
  children:
    - kind: bind
      path: "$.[unclosed"
`)
	require.NoError(t, err)

	_, err = def.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root/0", "build errors name the offending node path")
}

func TestBuildRejectsStructureInsideElements(t *testing.T) {
	def, err := manifest.LoadString(`
name: broken
root:
  kind: element
  tag: div
  children:
    - kind: knot
      slots:
        only: {kind: text, value: x}
`)
	require.NoError(t, err)

	_, err = def.Build()
	require.Error(t, err)
}
