// Package model implements the document tree: the semantic, editable
// structure of elements, text runs and fragments that conversion reads from
// and writes into.
package model

import (
	"maps"
	"reflect"
	"sync/atomic"
	"unicode/utf8"
)

// NodeID identifies a node for its whole lifetime. Ids are never reused.
type NodeID uint64

var lastNodeID atomic.Uint64

func nextNodeID() NodeID {
	return NodeID(lastNodeID.Add(1))
}

// Node is an element or a text run.
type Node interface {
	ID() NodeID
	// Parent returns the element or fragment holding the node, nil when detached.
	Parent() Container
	// OffsetSize is the number of offsets the node occupies in its parent.
	OffsetSize() int
	Attribute(key string) (any, bool)
	Attributes() map[string]any

	setParent(Container)
	attrs() map[string]any
}

// Container is a node that holds children: an element or a document fragment.
type Container interface {
	ID() NodeID
	Children() []Node
	ChildCount() int
	Child(index int) Node
	// MaxOffset is the sum of the offset sizes of all children.
	MaxOffset() int

	list() *nodeList
}

// Element is a named node with attributes and children.
type Element struct {
	nodeList

	id         NodeID
	name       string
	attributes map[string]any
	parent     Container

	// set for root elements only
	rootName string
	document *Document
	detached bool
}

// Text is a run of characters sharing the same attributes.
type Text struct {
	id         NodeID
	data       string
	attributes map[string]any
	parent     Container
}

// DocumentFragment is a detached list of nodes. Markers holds ranges
// statically assigned to the fragment, usually discovered during upcast.
type DocumentFragment struct {
	nodeList

	id      NodeID
	Markers map[string]Range
}

// NewElement creates a detached element.
func NewElement(name string, attrs map[string]any, children ...Node) *Element {
	el := &Element{
		id:         nextNodeID(),
		name:       name,
		attributes: cloneAttrs(attrs),
	}
	el.appendChildren(el, children)
	return el
}

// NewText creates a detached text run.
func NewText(data string, attrs map[string]any) *Text {
	return &Text{
		id:         nextNodeID(),
		data:       data,
		attributes: cloneAttrs(attrs),
	}
}

// NewDocumentFragment creates an empty fragment holding the given nodes.
func NewDocumentFragment(children ...Node) *DocumentFragment {
	frag := &DocumentFragment{
		id:      nextNodeID(),
		Markers: map[string]Range{},
	}
	frag.appendChildren(frag, children)
	return frag
}

func (e *Element) ID() NodeID                 { return e.id }
func (e *Element) Name() string               { return e.name }
func (e *Element) Parent() Container          { return e.parent }
func (e *Element) OffsetSize() int            { return 1 }
func (e *Element) Attributes() map[string]any { return maps.Clone(e.attributes) }
func (e *Element) setParent(p Container)      { e.parent = p }
func (e *Element) attrs() map[string]any      { return e.attributes }
func (e *Element) list() *nodeList            { return &e.nodeList }

func (e *Element) Attribute(key string) (any, bool) {
	v, ok := e.attributes[key]
	return v, ok
}

// IsRoot reports whether the element is a document root.
func (e *Element) IsRoot() bool { return e.document != nil }

// RootName returns the root name of a root element, empty otherwise.
func (e *Element) RootName() string { return e.rootName }

// IsAttached reports whether the element is reachable from an attached
// document root.
func (e *Element) IsAttached() bool {
	root, ok := RootOf(e).(*Element)
	return ok && root.document != nil && !root.detached
}

// Document returns the document owning the element, or nil when the element
// belongs to a fragment, a detached subtree or a detached root.
func (e *Element) Document() *Document {
	root, ok := RootOf(e).(*Element)
	if !ok || root.document == nil || root.detached {
		return nil
	}
	return root.document
}

func (t *Text) ID() NodeID                 { return t.id }
func (t *Text) Data() string               { return t.data }
func (t *Text) Parent() Container          { return t.parent }
func (t *Text) OffsetSize() int            { return utf8.RuneCountInString(t.data) }
func (t *Text) Attributes() map[string]any { return maps.Clone(t.attributes) }
func (t *Text) setParent(p Container)      { t.parent = p }
func (t *Text) attrs() map[string]any      { return t.attributes }

func (t *Text) Attribute(key string) (any, bool) {
	v, ok := t.attributes[key]
	return v, ok
}

func (f *DocumentFragment) ID() NodeID       { return f.id }
func (f *DocumentFragment) list() *nodeList { return &f.nodeList }

// RootOf walks up the parents of c and returns the topmost container.
func RootOf(c Container) Container {
	for {
		node, ok := c.(Node)
		if !ok || node.Parent() == nil {
			return c
		}
		c = node.Parent()
	}
}

// Index returns the index of node in its parent, -1 when detached.
func Index(node Node) int {
	parent := node.Parent()
	if parent == nil {
		return -1
	}
	for i, child := range parent.Children() {
		if child == node {
			return i
		}
	}
	return -1
}

// StartOffset returns the offset at which node starts in its parent, -1
// when detached.
func StartOffset(node Node) int {
	parent := node.Parent()
	if parent == nil {
		return -1
	}
	offset := 0
	for _, child := range parent.Children() {
		if child == node {
			return offset
		}
		offset += child.OffsetSize()
	}
	return -1
}

// Name returns the element name of an element and "$text" for text runs.
func Name(node Node) string {
	if el, ok := node.(*Element); ok {
		return el.name
	}
	return TextName
}

// TextName is the schema and event name used for text runs.
const TextName = "$text"

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

func (l *nodeList) MaxOffset() int {
	total := 0
	for _, n := range l.nodes {
		total += n.OffsetSize()
	}
	return total
}

// locate returns the index of the child containing offset and the offset at
// which that child starts. For offset == MaxOffset it returns len(nodes).
func (l *nodeList) locate(offset int) (index, start int) {
	for i, n := range l.nodes {
		size := n.OffsetSize()
		if offset < start+size {
			return i, start
		}
		start += size
	}
	return len(l.nodes), start
}

func (l *nodeList) offsetOfIndex(index int) int {
	offset := 0
	for i := 0; i < index && i < len(l.nodes); i++ {
		offset += l.nodes[i].OffsetSize()
	}
	return offset
}

func (l *nodeList) appendChildren(owner Container, children []Node) {
	l.insertChildren(owner, len(l.nodes), children...)
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

func cloneAttrs(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return map[string]any{}
	}
	return maps.Clone(attrs)
}

func attrsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}
