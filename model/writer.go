package model

import (
	"errors"
	"fmt"
	"maps"
)

// ErrAttached is returned when inserting a node that still has a parent.
var ErrAttached = errors.New("node is already attached")

// Writer mutates document trees. A zero Writer works on detached trees; one
// obtained from Document.Change also manages document markers.
type Writer struct {
	doc   *Document
	batch *Batch
}

// NewWriter returns a writer for detached trees such as upcast fragments.
func NewWriter() *Writer { return &Writer{} }

func (w *Writer) op() {
	if w.batch != nil {
		w.batch.Operations++
	}
}

func (w *Writer) CreateElement(name string, attrs map[string]any) *Element {
	return NewElement(name, attrs)
}

func (w *Writer) CreateText(data string, attrs map[string]any) *Text {
	return NewText(data, attrs)
}

func (w *Writer) CreateDocumentFragment() *DocumentFragment {
	return NewDocumentFragment()
}

// Insert puts a detached node at pos, splitting a text run when pos lies
// inside one. Text is merged with neighbours carrying equal attributes.
// The returned range spans the inserted content.
func (w *Writer) Insert(node Node, pos Position) (Range, error) {
	if node.Parent() != nil {
		return Range{}, ErrAttached
	}
	return w.insertNodes(pos, []Node{node})
}

// InsertFragment moves all children of frag to pos.
func (w *Writer) InsertFragment(frag *DocumentFragment, pos Position) (Range, error) {
	nodes := frag.removeChildren(0, frag.ChildCount())
	return w.insertNodes(pos, nodes)
}

// Append inserts node at the end of parent.
func (w *Writer) Append(node Node, parent Container) (Range, error) {
	return w.Insert(node, PositionAt(parent, parent.MaxOffset()))
}

func (w *Writer) insertNodes(pos Position, nodes []Node) (Range, error) {
	if pos.Parent == nil || pos.Offset < 0 || pos.Offset > pos.Parent.MaxOffset() {
		return Range{}, fmt.Errorf("insert at offset %d: %w", pos.Offset, ErrInvalidPosition)
	}
	w.op()
	parent := pos.Parent
	index := splitTextAt(parent, pos.Offset)
	parent.list().insertChildren(parent, index, nodes...)

	size := 0
	for _, n := range nodes {
		size += n.OffsetSize()
	}
	mergeTextAt(parent, index+len(nodes))
	mergeTextAt(parent, index)
	return Range{Start: pos, End: pos.ShiftedBy(size)}, nil
}

// Remove detaches node from its parent and merges the text around the gap.
func (w *Writer) Remove(node Node) error {
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	w.op()
	index := Index(node)
	parent.list().removeChildren(index, 1)
	mergeTextAt(parent, index)
	return nil
}

// ClearChildren removes every child of c.
func (w *Writer) ClearChildren(c Container) {
	w.op()
	c.list().removeChildren(0, c.ChildCount())
}

// SetAttribute sets key on an element or a text run.
func (w *Writer) SetAttribute(key string, value any, node Node) {
	w.op()
	node.attrs()[key] = value
	if text, ok := node.(*Text); ok && text.parent != nil {
		index := Index(text)
		mergeTextAt(text.parent, index+1)
		mergeTextAt(text.parent, index)
	}
}

// RemoveAttribute removes key from an element or a text run.
func (w *Writer) RemoveAttribute(key string, node Node) {
	w.op()
	delete(node.attrs(), key)
	if text, ok := node.(*Text); ok && text.parent != nil {
		index := Index(text)
		mergeTextAt(text.parent, index+1)
		mergeTextAt(text.parent, index)
	}
}

// SetAttributeOnRange sets key on every node of a flat range, splitting text
// runs at the range boundaries. Nodes for which allow returns false are
// skipped; a nil allow accepts every node.
func (w *Writer) SetAttributeOnRange(key string, value any, rng Range, allow func(Node) bool) error {
	if !rng.IsFlat() {
		return fmt.Errorf("set attribute %q on a range spanning several parents: %w", key, ErrInvalidPosition)
	}
	w.op()
	parent := rng.Start.Parent
	start := splitTextAt(parent, rng.Start.Offset)
	end := splitTextAt(parent, rng.End.Offset)
	for i := start; i < end; i++ {
		node := parent.Child(i)
		if allow != nil && !allow(node) {
			continue
		}
		node.attrs()[key] = value
	}
	for i := parent.ChildCount(); i > 0; i-- {
		mergeTextAt(parent, i)
	}
	return nil
}

// AddMarker registers or moves a document marker.
func (w *Writer) AddMarker(name string, rng Range) (*Marker, error) {
	if w.doc == nil {
		return nil, ErrNoDocument
	}
	w.op()
	return w.doc.markers.Set(name, rng), nil
}

// RemoveMarker drops a document marker.
func (w *Writer) RemoveMarker(name string) error {
	if w.doc == nil {
		return ErrNoDocument
	}
	w.op()
	w.doc.markers.Remove(name)
	return nil
}

// splitTextAt makes offset fall between two children and returns the index
// of the child starting there.
func splitTextAt(parent Container, offset int) int {
	list := parent.list()
	index, start := list.locate(offset)
	text, ok := parent.Child(index).(*Text)
	if !ok || start == offset {
		return index
	}
	runes := []rune(text.data)
	cut := offset - start
	tail := NewText(string(runes[cut:]), maps.Clone(text.attributes))
	text.data = string(runes[:cut])
	list.insertChildren(parent, index+1, tail)
	return index + 1
}

// mergeTextAt joins the children at index-1 and index when both are text
// runs with equal attributes.
func mergeTextAt(parent Container, index int) {
	if index <= 0 || index >= parent.ChildCount() {
		return
	}
	prev, ok1 := parent.Child(index - 1).(*Text)
	next, ok2 := parent.Child(index).(*Text)
	if !ok1 || !ok2 || !attrsEqual(prev.attributes, next.attributes) {
		return
	}
	prev.data += next.data
	parent.list().removeChildren(index, 1)
}
