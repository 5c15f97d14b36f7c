// Package view implements the presentation tree that documents are rendered
// into, along with its writer and its HTML and XML codecs.
package view

import (
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// NodeID identifies a node for its whole lifetime.
type NodeID uint64

var lastNodeID atomic.Uint64

func nextNodeID() NodeID {
	return NodeID(lastNodeID.Add(1))
}

// Kind tells the role an element plays in the presentation tree.
type Kind int

const (
	// KindContainer is a structural block, the usual target of bindings.
	KindContainer Kind = iota
	// KindAttribute wraps inline content, such as <strong>.
	KindAttribute
	// KindEmpty never has children, such as <br> or <img>.
	KindEmpty
	// KindUI is synthetic markup not backed by document content.
	KindUI
)

func (k Kind) String() string {
	switch k {
	case KindAttribute:
		return "attribute"
	case KindEmpty:
		return "empty"
	case KindUI:
		return "ui"
	default:
		return "container"
	}
}

// Holder is anything a Position can point into: a container or a text node.
type Holder interface {
	ID() NodeID
	holder()
}

// Node is an element or a text node.
type Node interface {
	Holder
	Parent() Container
	setParent(Container)
}

// Container holds children: an element or a document fragment.
type Container interface {
	Holder
	Children() []Node
	ChildCount() int
	Child(index int) Node
	list() *nodeList
}

// Element is a named presentation node.
type Element struct {
	nodeList

	id       NodeID
	kind     Kind
	name     string
	attrKeys []string
	attrs    map[string]string
	parent   Container
}

// Text is a presentation text node.
type Text struct {
	id     NodeID
	data   string
	parent Container
}

// DocumentFragment is a detached list of presentation nodes.
type DocumentFragment struct {
	nodeList

	id NodeID
}

func newElement(kind Kind, name string, attrs map[string]string) *Element {
	el := &Element{
		id:    nextNodeID(),
		kind:  kind,
		name:  name,
		attrs: map[string]string{},
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		el.setAttribute(key, attrs[key])
	}
	return el
}

// NewText creates a detached text node.
func NewText(data string) *Text {
	return &Text{id: nextNodeID(), data: data}
}

// NewDocumentFragment creates a fragment holding the given nodes.
func NewDocumentFragment(children ...Node) *DocumentFragment {
	frag := &DocumentFragment{id: nextNodeID()}
	frag.insertChildren(frag, 0, children...)
	return frag
}

func (e *Element) ID() NodeID            { return e.id }
func (e *Element) Name() string          { return e.name }
func (e *Element) Kind() Kind            { return e.kind }
func (e *Element) Parent() Container     { return e.parent }
func (e *Element) setParent(p Container) { e.parent = p }
func (e *Element) list() *nodeList       { return &e.nodeList }
func (e *Element) holder()               {}

// CanHaveChildren is false for empty and UI elements.
func (e *Element) CanHaveChildren() bool {
	return e.kind == KindContainer || e.kind == KindAttribute
}

func (e *Element) Attribute(key string) (string, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

func (e *Element) HasAttribute(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// AttributeKeys returns attribute keys in the order they were set.
func (e *Element) AttributeKeys() []string { return slices.Clone(e.attrKeys) }

// Classes returns the entries of the class attribute.
func (e *Element) Classes() []string {
	return strings.Fields(e.attrs["class"])
}

func (e *Element) HasClass(class string) bool {
	return slices.Contains(e.Classes(), class)
}

func (e *Element) setAttribute(key, value string) {
	if _, ok := e.attrs[key]; !ok {
		e.attrKeys = append(e.attrKeys, key)
	}
	e.attrs[key] = value
}

func (e *Element) removeAttribute(key string) {
	if _, ok := e.attrs[key]; !ok {
		return
	}
	delete(e.attrs, key)
	e.attrKeys = slices.DeleteFunc(e.attrKeys, func(k string) bool { return k == key })
}

func (t *Text) ID() NodeID            { return t.id }
func (t *Text) Data() string          { return t.data }
func (t *Text) Parent() Container     { return t.parent }
func (t *Text) setParent(p Container) { t.parent = p }
func (t *Text) holder()               {}

// Len returns the number of characters in the node.
func (t *Text) Len() int { return utf8.RuneCountInString(t.data) }

func (f *DocumentFragment) ID() NodeID      { return f.id }
func (f *DocumentFragment) list() *nodeList { return &f.nodeList }
func (f *DocumentFragment) holder()         {}

// Index returns the index of node in its parent, -1 when detached.
func Index(node Node) int {
	parent := node.Parent()
	if parent == nil {
		return -1
	}
	return slices.Index(parent.Children(), node)
}

// Ancestors returns the containers above node, nearest first.
func Ancestors(node Node) []Container {
	var out []Container
	for p := node.Parent(); p != nil; {
		out = append(out, p)
		n, ok := p.(Node)
		if !ok {
			break
		}
		p = n.Parent()
	}
	return out
}

type nodeList struct {
	nodes []Node
}

// Children returns the child slice. Callers must not modify it.
func (l *nodeList) Children() []Node { return l.nodes }
func (l *nodeList) ChildCount() int  { return len(l.nodes) }

func (l *nodeList) Child(index int) Node {
	if index < 0 || index >= len(l.nodes) {
		return nil
	}
	return l.nodes[index]
}

func (l *nodeList) insertChildren(owner Container, index int, children ...Node) {
	for _, child := range children {
		child.setParent(owner)
	}
	l.nodes = append(l.nodes[:index], append(append([]Node{}, children...), l.nodes[index:]...)...)
}

func (l *nodeList) removeChildren(index, count int) []Node {
	removed := append([]Node{}, l.nodes[index:index+count]...)
	l.nodes = append(l.nodes[:index], l.nodes[index+count:]...)
	for _, n := range removed {
		n.setParent(nil)
	}
	return removed
}
