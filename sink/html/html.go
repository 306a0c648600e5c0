// Package html is a reference render sink: it materializes a
// weave.Renderable into HTML text, keeps it live as bindings emit, and owns
// the subscription lifetime of the reactive graph it displays.
package html

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/stream"
)

type nodeKind int

const (
	kindNothing nodeKind = iota
	kindText
	kindBind
	kindFragment
	kindElement
	kindDyn
)

// liveNode mirrors one Renderable with its current materialized content and
// the subscriptions keeping it current.
type liveNode struct {
	kind      nodeKind
	tag       string
	attrs     map[string]string
	bindAttrs map[string]string
	on        map[string]func()
	text      string
	children  []*liveNode
	inner     *liveNode // dyn's current subtree
	subs      []stream.Subscription
}

// Session is a live rendering of a mounted tree. Every binding change
// produces a fresh HTML frame; closing the session tears down the entire
// reactive graph beneath it.
type Session struct {
	mu     sync.Mutex
	root   *liveNode
	frames *stream.Subject[string]
	ready  bool
	closed bool
	err    error
}

// NewSession materializes r and starts tracking its bindings.
func NewSession(r weave.Renderable) *Session {
	s := &Session{frames: stream.NewSubject[string]()}
	s.root = s.materialize(r)
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return s
}

// RenderString renders a snapshot of r and releases every subscription taken
// while producing it.
func RenderString(r weave.Renderable) (string, error) {
	s := NewSession(r)
	defer s.Close()
	if err := s.Err(); err != nil {
		return "", err
	}
	return s.HTML(), nil
}

// HTML returns the current frame.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	writeHTML(&b, s.root)
	return b.String()
}

// Frames is the stream of HTML frames produced by binding changes. It fails
// if the underlying reactive graph fails, and completes when the session is
// closed.
func (s *Session) Frames() stream.Observable[string] {
	return s.frames.Observe()
}

// Err reports a reactive-graph failure observed by the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Click dispatches a click to the element whose static id attribute matches.
func (s *Session) Click(id string) error {
	s.mu.Lock()
	n := findByID(s.root, id)
	if n == nil {
		s.mu.Unlock()
		return fmt.Errorf("no element with id %q", id)
	}
	handler, ok := n.on["click"]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("element %q has no click handler", id)
	}
	// dispatch outside the lock: the handler synchronously re-enters the
	// session through binding updates
	s.mu.Unlock()
	handler()
	return nil
}

// Close disposes the whole subtree's subscriptions and completes Frames.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	root := s.root
	s.mu.Unlock()
	dispose(root)
	s.frames.Complete()
}

func (s *Session) changed() {
	s.mu.Lock()
	if !s.ready || s.closed {
		s.mu.Unlock()
		return
	}
	var b strings.Builder
	writeHTML(&b, s.root)
	s.mu.Unlock()
	s.frames.Next(b.String())
}

func (s *Session) failed(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()
	s.frames.Error(err)
}

// materialize builds the live mirror of r, subscribing to every binding.
// Synchronous emissions during the initial build do not produce frames
// because s.ready is still false; later re-entrant updates mutate the nodes
// in place and emit through changed.
func (s *Session) materialize(r weave.Renderable) *liveNode {
	switch v := r.(type) {
	case nil, weave.Nothing:
		return &liveNode{kind: kindNothing}

	case weave.Text:
		return &liveNode{kind: kindText, text: v.Value}

	case weave.Bind:
		n := &liveNode{kind: kindBind}
		sub := v.Source.Subscribe(stream.Observer[string]{
			Next: func(text string) {
				n.text = text
				s.changed()
			},
			Err: s.failed,
		})
		n.subs = append(n.subs, sub)
		return n

	case weave.Fragment:
		n := &liveNode{kind: kindFragment}
		for _, c := range v.Children {
			n.children = append(n.children, s.materialize(c))
		}
		return n

	case weave.Element:
		n := &liveNode{
			kind:  kindElement,
			tag:   v.Tag,
			attrs: v.Attrs,
			on:    v.On,
		}
		if len(v.BindAttrs) > 0 {
			n.bindAttrs = make(map[string]string, len(v.BindAttrs))
			for name, src := range v.BindAttrs {
				attr := name
				sub := src.Subscribe(stream.Observer[string]{
					Next: func(val string) {
						n.bindAttrs[attr] = val
						s.changed()
					},
					Err: s.failed,
				})
				n.subs = append(n.subs, sub)
			}
		}
		for _, c := range v.Children {
			n.children = append(n.children, s.materialize(c))
		}
		return n

	case weave.Dyn:
		n := &liveNode{kind: kindDyn}
		sub := v.Source.Subscribe(stream.Observer[weave.Renderable]{
			Next: func(next weave.Renderable) {
				// each emission replaces the previous subtree entirely; its
				// subscriptions must not outlive it
				if n.inner != nil {
					dispose(n.inner)
				}
				n.inner = s.materialize(next)
				s.changed()
			},
			Err: s.failed,
		})
		n.subs = append(n.subs, sub)
		return n

	default:
		s.failed(fmt.Errorf("%w: sink got renderable %T", weave.ErrUnsupportedVariant, r))
		return &liveNode{kind: kindNothing}
	}
}

func dispose(n *liveNode) {
	if n == nil {
		return
	}
	for _, sub := range n.subs {
		sub.Unsubscribe()
	}
	for _, c := range n.children {
		dispose(c)
	}
	dispose(n.inner)
}

func writeHTML(b *strings.Builder, n *liveNode) {
	if n == nil {
		return
	}
	switch n.kind {
	case kindNothing:
	case kindText, kindBind:
		b.WriteString(html.EscapeString(n.text))
	case kindFragment:
		for _, c := range n.children {
			writeHTML(b, c)
		}
	case kindDyn:
		writeHTML(b, n.inner)
	case kindElement:
		b.WriteByte('<')
		b.WriteString(n.tag)
		writeAttrs(b, n)
		b.WriteByte('>')
		for _, c := range n.children {
			writeHTML(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.tag)
		b.WriteByte('>')
	}
}

// writeAttrs merges static and bound attributes, bound values winning, in
// sorted order so output is deterministic.
func writeAttrs(b *strings.Builder, n *liveNode) {
	if len(n.attrs) == 0 && len(n.bindAttrs) == 0 {
		return
	}
	merged := make(map[string]string, len(n.attrs)+len(n.bindAttrs))
	for k, v := range n.attrs {
		merged[k] = v
	}
	for k, v := range n.bindAttrs {
		merged[k] = v
	}
	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(merged[name]))
		b.WriteByte('"')
	}
}

func findByID(n *liveNode, id string) *liveNode {
	if n == nil {
		return nil
	}
	if n.kind == kindElement && n.attrs["id"] == id {
		return n
	}
	for _, c := range n.children {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return findByID(n.inner, id)
}
