package model

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidPosition is returned when a position points outside its parent.
var ErrInvalidPosition = errors.New("invalid position")

// Relation describes where one position lies compared to another.
type Relation int

const (
	Before Relation = iota - 1
	Same
	After
	Different
)

func (r Relation) String() string {
	switch r {
	case Before:
		return "before"
	case Same:
		return "same"
	case After:
		return "after"
	default:
		return "different"
	}
}

// Position is a point between two offsets of a container.
type Position struct {
	Parent Container
	Offset int
}

// PositionAt returns the position at offset in parent.
func PositionAt(parent Container, offset int) Position {
	return Position{Parent: parent, Offset: offset}
}

// PositionBefore returns the position just before node.
func PositionBefore(node Node) Position {
	return Position{Parent: node.Parent(), Offset: StartOffset(node)}
}

// PositionAfter returns the position just after node.
func PositionAfter(node Node) Position {
	return Position{Parent: node.Parent(), Offset: StartOffset(node) + node.OffsetSize()}
}

// PositionFromPath resolves a path relative to root.
func PositionFromPath(root Container, path []int) (Position, error) {
	if len(path) == 0 {
		return Position{}, fmt.Errorf("empty path: %w", ErrInvalidPosition)
	}
	parent := root
	for _, offset := range path[:len(path)-1] {
		index, start := parent.list().locate(offset)
		el, ok := parent.Child(index).(*Element)
		if !ok || start != offset {
			return Position{}, fmt.Errorf("path %v does not lead to an element: %w", path, ErrInvalidPosition)
		}
		parent = el
	}
	pos := Position{Parent: parent, Offset: path[len(path)-1]}
	if pos.Offset < 0 || pos.Offset > parent.MaxOffset() {
		return Position{}, fmt.Errorf("offset %d out of parent bounds: %w", pos.Offset, ErrInvalidPosition)
	}
	return pos, nil
}

// Root returns the topmost container of the position.
func (p Position) Root() Container { return RootOf(p.Parent) }

// Path returns the offsets leading from the root to the position.
func (p Position) Path() []int {
	path := []int{p.Offset}
	c := p.Parent
	for {
		node, ok := c.(Node)
		if !ok || node.Parent() == nil {
			break
		}
		path = append(path, StartOffset(node))
		c = node.Parent()
	}
	slices.Reverse(path)
	return path
}

// Compare returns the relation of p to other. Positions in different roots
// are Different.
func (p Position) Compare(other Position) Relation {
	if p.Parent == other.Parent {
		return relationOf(p.Offset - other.Offset)
	}
	if p.Root() != other.Root() {
		return Different
	}
	a, b := p.Path(), other.Path()
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return relationOf(a[i] - b[i])
		}
	}
	return relationOf(len(a) - len(b))
}

func relationOf(diff int) Relation {
	switch {
	case diff < 0:
		return Before
	case diff > 0:
		return After
	default:
		return Same
	}
}

func (p Position) IsEqual(other Position) bool  { return p.Compare(other) == Same }
func (p Position) IsBefore(other Position) bool { return p.Compare(other) == Before }
func (p Position) IsAfter(other Position) bool  { return p.Compare(other) == After }

// ShiftedBy returns the position moved by n offsets within the same parent.
func (p Position) ShiftedBy(n int) Position {
	return Position{Parent: p.Parent, Offset: max(0, p.Offset+n)}
}

// TextNode returns the text run the position lies strictly inside of.
func (p Position) TextNode() *Text {
	index, start := p.Parent.list().locate(p.Offset)
	text, ok := p.Parent.Child(index).(*Text)
	if !ok || start == p.Offset {
		return nil
	}
	return text
}

// NodeAfter returns the node starting at the position, nil inside text.
func (p Position) NodeAfter() Node {
	index, start := p.Parent.list().locate(p.Offset)
	if start != p.Offset {
		return nil
	}
	return p.Parent.Child(index)
}

// NodeBefore returns the node ending at the position, nil inside text.
func (p Position) NodeBefore() Node {
	if p.Offset == 0 || p.TextNode() != nil {
		return nil
	}
	index, _ := p.Parent.list().locate(p.Offset - 1)
	return p.Parent.Child(index)
}

// Range is a pair of positions sharing a root, Start never after End.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range, collapsed when end is omitted.
func NewRange(start Position, end ...Position) Range {
	if len(end) == 0 {
		return Range{Start: start, End: start}
	}
	return Range{Start: start, End: end[0]}
}

// RangeIn returns the range spanning the whole content of c.
func RangeIn(c Container) Range {
	return Range{Start: PositionAt(c, 0), End: PositionAt(c, c.MaxOffset())}
}

// RangeOn returns the range spanning node itself.
func RangeOn(node Node) Range {
	return Range{Start: PositionBefore(node), End: PositionAfter(node)}
}

func (r Range) Root() Container   { return r.Start.Root() }
func (r Range) IsCollapsed() bool { return r.Start.IsEqual(r.End) }
func (r Range) IsFlat() bool      { return r.Start.Parent == r.End.Parent }

func (r Range) IsEqual(other Range) bool {
	return r.Start.IsEqual(other.Start) && r.End.IsEqual(other.End)
}

// ContainsPosition reports whether pos lies strictly inside the range.
func (r Range) ContainsPosition(pos Position) bool {
	return pos.IsAfter(r.Start) && pos.IsBefore(r.End)
}

// IsIntersecting reports whether the ranges share any content. Ranges that
// only touch do not intersect. A collapsed range intersects a range it lies
// strictly inside of.
func (r Range) IsIntersecting(other Range) bool {
	return r.Start.IsBefore(other.End) && r.End.IsAfter(other.Start)
}

// Intersection returns the common part of the ranges. ok is false when they
// do not intersect.
func (r Range) Intersection(other Range) (Range, bool) {
	if !r.IsIntersecting(other) {
		return Range{}, false
	}
	start, end := r.Start, r.End
	if other.Start.IsAfter(start) {
		start = other.Start
	}
	if other.End.IsBefore(end) {
		end = other.End
	}
	return Range{Start: start, End: end}, true
}

func (r Range) String() string {
	return fmt.Sprintf("%v-%v", r.Start.Path(), r.End.Path())
}

// Item is an element or a slice of a text run, as yielded by range walks.
type Item interface {
	ItemName() string
	ItemAttributes() map[string]any
}

// TextProxy is the part of a text run that falls inside a range.
type TextProxy struct {
	Text         *Text
	OffsetInText int
	Length       int
}

func (t TextProxy) ItemName() string               { return TextName }
func (t TextProxy) ItemAttributes() map[string]any { return t.Text.Attributes() }

// Data returns the characters covered by the proxy.
func (t TextProxy) Data() string {
	runes := []rune(t.Text.data)
	return string(runes[t.OffsetInText : t.OffsetInText+t.Length])
}

// IsPartial reports whether the proxy covers only part of its text run.
func (t TextProxy) IsPartial() bool {
	return t.OffsetInText != 0 || t.Length != t.Text.OffsetSize()
}

// Range returns the document range covered by the proxy.
func (t TextProxy) Range() Range {
	start := PositionBefore(t.Text).ShiftedBy(t.OffsetInText)
	return Range{Start: start, End: start.ShiftedBy(t.Length)}
}

func (e *Element) ItemName() string               { return e.name }
func (e *Element) ItemAttributes() map[string]any { return e.Attributes() }

// ItemRange returns the document range covered by an item.
func ItemRange(item Item) Range {
	switch it := item.(type) {
	case TextProxy:
		return it.Range()
	case *Element:
		return RangeOn(it)
	}
	return Range{}
}

// Items walks the range depth-first and returns every element entered and
// every text slice, in document order.
func (r Range) Items() []Item {
	return r.walk(false)
}

// ShallowItems returns the items of a flat range without descending into
// elements.
func (r Range) ShallowItems() []Item {
	return r.walk(true)
}

func (r Range) walk(shallow bool) []Item {
	var items []Item
	pos := r.Start
	for pos.IsBefore(r.End) {
		parent := pos.Parent
		if pos.Offset >= parent.MaxOffset() {
			node, ok := parent.(Node)
			if !ok || node.Parent() == nil {
				break
			}
			pos = PositionAfter(node)
			continue
		}
		index, start := parent.list().locate(pos.Offset)
		switch child := parent.Child(index).(type) {
		case *Text:
			end := start + child.OffsetSize()
			if r.End.Parent == parent && r.End.Offset < end {
				end = r.End.Offset
			}
			items = append(items, TextProxy{Text: child, OffsetInText: pos.Offset - start, Length: end - pos.Offset})
			pos.Offset = end
		case *Element:
			items = append(items, child)
			if shallow {
				pos.Offset = start + 1
			} else {
				pos = PositionAt(child, 0)
			}
		}
	}
	return items
}

// ContextOf returns the names of the elements enclosing pos, outermost
// first, prefixed with base. Fragments do not contribute a name.
func ContextOf(pos Position, base ...string) []string {
	var names []string
	c := pos.Parent
	for c != nil {
		el, ok := c.(*Element)
		if !ok {
			break
		}
		names = append(names, el.name)
		c = el.parent
	}
	slices.Reverse(names)
	return append(slices.Clone(base), names...)
}
