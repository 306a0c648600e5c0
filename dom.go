package weave

import "github.com/weaveui/weave/stream"

// Renderable is the description the tree engine produces and a render sink
// consumes: a tree of primitive visual elements carrying reactive text and
// attribute bindings. Sinks materialize it and drive the reactive graph's
// lifetime through their subscribe/unsubscribe discipline.
type Renderable interface {
	renderable()
}

// Element is a primitive visual element.
type Element struct {
	Tag string

	// Attrs are static attributes; BindAttrs are reactive ones, re-evaluated
	// by the sink on every emission.
	Attrs     map[string]string
	BindAttrs map[string]stream.Observable[string]

	// On maps event names ("click", ...) to handlers. Handlers typically
	// close over the unit's notify function.
	On map[string]func()

	Children []Renderable
}

// Text is static text content.
type Text struct {
	Value string
}

// Bind is reactive text content.
type Bind struct {
	Source stream.Observable[string]
}

// Fragment groups renderables without introducing an element.
type Fragment struct {
	Children []Renderable
}

// Dyn is a reactive subtree: each emission replaces the previous subtree
// entirely, and the sink must dispose of the replaced subtree's
// subscriptions when it does.
type Dyn struct {
	Source stream.Observable[Renderable]
}

// Nothing is the absence of output. Containers omit it rather than rendering
// an empty placeholder.
type Nothing struct{}

func (Element) renderable()  {}
func (Text) renderable()     {}
func (Bind) renderable()     {}
func (Fragment) renderable() {}
func (Dyn) renderable()      {}
func (Nothing) renderable()  {}
