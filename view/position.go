package view

import "fmt"

// Position points into a container (offset counts children) or into a text
// node (offset counts characters).
type Position struct {
	Parent Holder
	Offset int
}

func PositionAt(parent Holder, offset int) Position {
	return Position{Parent: parent, Offset: offset}
}

func PositionBefore(node Node) Position {
	return Position{Parent: node.Parent(), Offset: Index(node)}
}

func PositionAfter(node Node) Position {
	return Position{Parent: node.Parent(), Offset: Index(node) + 1}
}

// NodeAfter returns the child starting at a container position.
func (p Position) NodeAfter() Node {
	c, ok := p.Parent.(Container)
	if !ok {
		return nil
	}
	return c.Child(p.Offset)
}

// NodeBefore returns the child ending at a container position.
func (p Position) NodeBefore() Node {
	c, ok := p.Parent.(Container)
	if !ok {
		return nil
	}
	return c.Child(p.Offset - 1)
}

func (p Position) IsEqual(other Position) bool {
	return p.Parent == other.Parent && p.Offset == other.Offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d@%d", p.Parent.ID(), p.Offset)
}

// Range is a pair of view positions.
type Range struct {
	Start Position
	End   Position
}

// RangeOn returns the range spanning node.
func RangeOn(node Node) Range {
	return Range{Start: PositionBefore(node), End: PositionAfter(node)}
}

// RangeIn returns the range spanning the children of c.
func RangeIn(c Container) Range {
	return Range{Start: PositionAt(c, 0), End: PositionAt(c, c.ChildCount())}
}

func (r Range) IsCollapsed() bool { return r.Start.IsEqual(r.End) }
