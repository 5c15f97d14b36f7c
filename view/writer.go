package view

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidPosition is returned for positions outside their parent.
	ErrInvalidPosition = errors.New("invalid view position")
	// ErrCannotHaveChildren is returned when inserting into empty or UI elements.
	ErrCannotHaveChildren = errors.New("element cannot have children")
	// ErrNotFlat is returned when a range spans several parents.
	ErrNotFlat = errors.New("range is not flat")
)

// Writer creates and modifies presentation nodes.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) CreateContainerElement(name string, attrs map[string]string, children ...Node) *Element {
	el := newElement(KindContainer, name, attrs)
	el.insertChildren(el, 0, children...)
	return el
}

func (w *Writer) CreateAttributeElement(name string, attrs map[string]string) *Element {
	return newElement(KindAttribute, name, attrs)
}

func (w *Writer) CreateEmptyElement(name string, attrs map[string]string) *Element {
	return newElement(KindEmpty, name, attrs)
}

func (w *Writer) CreateUIElement(name string, attrs map[string]string) *Element {
	return newElement(KindUI, name, attrs)
}

func (w *Writer) CreateText(data string) *Text { return NewText(data) }

func (w *Writer) CreateDocumentFragment() *DocumentFragment { return NewDocumentFragment() }

// Insert puts detached nodes at pos. A position inside a text node splits
// it. The returned range spans the inserted nodes.
func (w *Writer) Insert(pos Position, nodes ...Node) (Range, error) {
	for _, n := range nodes {
		if n.Parent() != nil {
			return Range{}, fmt.Errorf("insert node %d: already attached", n.ID())
		}
	}
	at, _, err := breakText(pos)
	if err != nil {
		return Range{}, err
	}
	parent := at.Parent.(Container)
	if el, ok := parent.(*Element); ok && !el.CanHaveChildren() {
		return Range{}, fmt.Errorf("insert into <%s>: %w", el.name, ErrCannotHaveChildren)
	}
	parent.list().insertChildren(parent, at.Offset, nodes...)
	return Range{Start: at, End: PositionAt(parent, at.Offset+len(nodes))}, nil
}

// Remove detaches node from its parent.
func (w *Writer) Remove(node Node) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	parent.list().removeChildren(Index(node), 1)
}

// RemoveRange detaches the nodes of a flat range, splitting text at its
// boundaries. The removed nodes are returned.
func (w *Writer) RemoveRange(rng Range) ([]Node, error) {
	start, end, err := breakRange(rng)
	if err != nil {
		return nil, err
	}
	parent := start.Parent.(Container)
	return parent.list().removeChildren(start.Offset, end.Offset-start.Offset), nil
}

// Wrap moves the content of a flat range into wrapper and puts wrapper in
// its place. The returned range spans wrapper.
func (w *Writer) Wrap(rng Range, wrapper *Element) (Range, error) {
	if wrapper.Parent() != nil {
		return Range{}, fmt.Errorf("wrap with <%s>: already attached", wrapper.name)
	}
	if !wrapper.CanHaveChildren() {
		return Range{}, fmt.Errorf("wrap with <%s>: %w", wrapper.name, ErrCannotHaveChildren)
	}
	start, end, err := breakRange(liftRange(rng))
	if err != nil {
		return Range{}, err
	}
	parent := start.Parent.(Container)
	moved := parent.list().removeChildren(start.Offset, end.Offset-start.Offset)
	wrapper.insertChildren(wrapper, wrapper.ChildCount(), moved...)
	parent.list().insertChildren(parent, start.Offset, wrapper)
	return RangeOn(wrapper), nil
}

// Unwrap replaces el with its children.
func (w *Writer) Unwrap(el *Element) error {
	parent := el.Parent()
	if parent == nil {
		return fmt.Errorf("unwrap <%s>: element is detached", el.name)
	}
	index := Index(el)
	children := el.removeChildren(0, el.ChildCount())
	parent.list().removeChildren(index, 1)
	parent.list().insertChildren(parent, index, children...)
	return nil
}

func (w *Writer) SetAttribute(key, value string, el *Element) { el.setAttribute(key, value) }
func (w *Writer) RemoveAttribute(key string, el *Element)     { el.removeAttribute(key) }

// AddClass appends class to the class attribute unless already present.
func (w *Writer) AddClass(class string, el *Element) {
	classes := el.Classes()
	if slices.Contains(classes, class) {
		return
	}
	el.setAttribute("class", strings.Join(append(classes, class), " "))
}

// RemoveClass drops class from the class attribute, and the attribute when
// it ends up empty.
func (w *Writer) RemoveClass(class string, el *Element) {
	classes := slices.DeleteFunc(el.Classes(), func(c string) bool { return c == class })
	if len(classes) == 0 {
		el.removeAttribute("class")
		return
	}
	el.setAttribute("class", strings.Join(classes, " "))
}

// breakText turns a position inside a text node into a container position,
// splitting the text node when the position falls in its middle.
func breakText(pos Position) (Position, bool, error) {
	text, ok := pos.Parent.(*Text)
	if !ok {
		c, isContainer := pos.Parent.(Container)
		if !isContainer || pos.Offset < 0 || pos.Offset > c.ChildCount() {
			return Position{}, false, fmt.Errorf("offset %d: %w", pos.Offset, ErrInvalidPosition)
		}
		return pos, false, nil
	}
	parent := text.Parent()
	if parent == nil || pos.Offset < 0 || pos.Offset > text.Len() {
		return Position{}, false, fmt.Errorf("text offset %d: %w", pos.Offset, ErrInvalidPosition)
	}
	index := Index(text)
	switch pos.Offset {
	case 0:
		return PositionAt(parent, index), false, nil
	case text.Len():
		return PositionAt(parent, index+1), false, nil
	}
	runes := []rune(text.data)
	tail := NewText(string(runes[pos.Offset:]))
	text.data = string(runes[:pos.Offset])
	parent.list().insertChildren(parent, index+1, tail)
	return PositionAt(parent, index+1), true, nil
}

// liftRange moves the ends of a range out of attribute elements they sit on
// the edge of until both ends share a container, when that is possible.
func liftRange(rng Range) Range {
	start, end := edgeOfText(rng.Start), edgeOfText(rng.End)
	for {
		cs, ce := containerOf(start), containerOf(end)
		if cs == ce {
			return Range{Start: start, End: end}
		}
		ds, de := depth(cs), depth(ce)
		lifted := false
		if ds >= de {
			if el, ok := start.Parent.(*Element); ok && el.kind == KindAttribute && start.Offset == 0 && el.parent != nil {
				start, lifted = PositionBefore(el), true
			}
		}
		if de >= ds {
			if el, ok := end.Parent.(*Element); ok && el.kind == KindAttribute && end.Offset == el.ChildCount() && el.parent != nil {
				end, lifted = PositionAfter(el), true
			}
		}
		if !lifted {
			return Range{Start: start, End: end}
		}
	}
}

// edgeOfText turns a position on the edge of a text node into a container
// position.
func edgeOfText(pos Position) Position {
	text, ok := pos.Parent.(*Text)
	if !ok || text.parent == nil {
		return pos
	}
	switch pos.Offset {
	case 0:
		return PositionBefore(text)
	case text.Len():
		return PositionAfter(text)
	}
	return pos
}

func containerOf(pos Position) Holder {
	if text, ok := pos.Parent.(*Text); ok {
		return text.parent
	}
	return pos.Parent
}

func depth(h Holder) int {
	n := 0
	for node, ok := h.(Node); ok && node.Parent() != nil; node, ok = node.Parent().(Node) {
		n++
	}
	return n
}

func breakRange(rng Range) (Position, Position, error) {
	end, _, err := breakText(rng.End)
	if err != nil {
		return Position{}, Position{}, err
	}
	start, split, err := breakText(rng.Start)
	if err != nil {
		return Position{}, Position{}, err
	}
	if start.Parent != end.Parent {
		return Position{}, Position{}, ErrNotFlat
	}
	if split {
		end.Offset++
	}
	if end.Offset < start.Offset {
		return Position{}, Position{}, fmt.Errorf("range end before start: %w", ErrInvalidPosition)
	}
	return start, end, nil
}
