package conversion

import (
	"slices"

	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// Mapper remembers which presentation containers stand for which document
// containers and translates positions between the two trees.
//
// Offsets are translated through "view lengths": a bound node counts as one
// slot, a text node as its characters, a UI element as nothing, and any
// other node as the sum of its children. Unbound document elements are
// flattened the same way, so their content maps into the nearest bound
// ancestor.
type Mapper struct {
	modelToView map[model.NodeID]view.Container
	viewToModel map[view.NodeID]model.Container

	viewLengths map[string]func(*view.Element) int

	markerToElements map[string][]*view.Element
	elementToMarkers map[view.NodeID][]string
}

func NewMapper() *Mapper {
	m := &Mapper{viewLengths: map[string]func(*view.Element) int{}}
	m.ClearBindings()
	return m
}

// BindElements binds a document container and a presentation container.
// Any previous binding of either side is dropped.
func (m *Mapper) BindElements(modelNode model.Container, viewNode view.Container) {
	if old, ok := m.modelToView[modelNode.ID()]; ok {
		delete(m.viewToModel, old.ID())
	}
	if old, ok := m.viewToModel[viewNode.ID()]; ok {
		delete(m.modelToView, old.ID())
	}
	m.modelToView[modelNode.ID()] = viewNode
	m.viewToModel[viewNode.ID()] = modelNode
}

// UnbindViewElement drops the binding held by viewNode. The document side
// keeps pointing at viewNode only if it was rebound elsewhere meanwhile.
func (m *Mapper) UnbindViewElement(viewNode view.Container) {
	modelNode, ok := m.viewToModel[viewNode.ID()]
	if !ok {
		return
	}
	delete(m.viewToModel, viewNode.ID())
	if m.modelToView[modelNode.ID()] == viewNode {
		delete(m.modelToView, modelNode.ID())
	}
}

// UnbindModelElement drops the binding held by modelNode.
func (m *Mapper) UnbindModelElement(modelNode model.Container) {
	viewNode, ok := m.modelToView[modelNode.ID()]
	if !ok {
		return
	}
	delete(m.modelToView, modelNode.ID())
	if m.viewToModel[viewNode.ID()] == modelNode {
		delete(m.viewToModel, viewNode.ID())
	}
}

// ClearBindings drops every element and marker binding. Registered view
// lengths are kept.
func (m *Mapper) ClearBindings() {
	m.modelToView = map[model.NodeID]view.Container{}
	m.viewToModel = map[view.NodeID]model.Container{}
	m.markerToElements = map[string][]*view.Element{}
	m.elementToMarkers = map[view.NodeID][]string{}
}

func (m *Mapper) ToViewElement(modelNode model.Container) (view.Container, bool) {
	v, ok := m.modelToView[modelNode.ID()]
	return v, ok
}

func (m *Mapper) ToModelElement(viewNode view.Container) (model.Container, bool) {
	c, ok := m.viewToModel[viewNode.ID()]
	return c, ok
}

// RegisterViewToModelLength overrides how many document offsets a
// presentation element named viewName stands for.
func (m *Mapper) RegisterViewToModelLength(viewName string, length func(*view.Element) int) {
	m.viewLengths[viewName] = length
}

// ModelLength returns how many document offsets a presentation node stands
// for.
func (m *Mapper) ModelLength(node view.Node) int {
	el, isElement := node.(*view.Element)
	if isElement {
		if fn, ok := m.viewLengths[el.Name()]; ok {
			return fn(el)
		}
	}
	if _, ok := m.viewToModel[node.ID()]; ok {
		return 1
	}
	if text, ok := node.(*view.Text); ok {
		return text.Len()
	}
	if el.Kind() == view.KindUI {
		return 0
	}
	total := 0
	for _, child := range el.Children() {
		total += m.ModelLength(child)
	}
	return total
}

// viewLengthOf is the document side counterpart of ModelLength.
func (m *Mapper) viewLengthOf(node model.Node) int {
	el, ok := node.(*model.Element)
	if !ok {
		return node.OffsetSize()
	}
	if _, bound := m.modelToView[el.ID()]; bound {
		return 1
	}
	total := 0
	for _, child := range el.Children() {
		total += m.viewLengthOf(child)
	}
	return total
}

// flatOffset returns the view length of the content of c before offset.
func (m *Mapper) flatOffset(c model.Container, offset int) int {
	flat, start := 0, 0
	for _, child := range c.Children() {
		if start >= offset {
			break
		}
		size := child.OffsetSize()
		if _, isText := child.(*model.Text); isText && start+size > offset {
			return flat + offset - start
		}
		flat += m.viewLengthOf(child)
		start += size
	}
	return flat
}

// ToViewPosition maps a document position into the presentation tree using
// the nearest bound ancestor of its parent.
func (m *Mapper) ToViewPosition(pos model.Position) (view.Position, error) {
	c := pos.Parent
	offset := m.flatOffset(c, pos.Offset)
	for {
		if viewParent, ok := m.modelToView[c.ID()]; ok {
			return m.FindPositionIn(viewParent, offset), nil
		}
		node, ok := c.(model.Node)
		if !ok || node.Parent() == nil {
			return view.Position{}, &NoBindingError{Side: SideModel, NodeID: uint64(pos.Parent.ID())}
		}
		parent := node.Parent()
		offset += m.flatOffset(parent, model.StartOffset(node))
		c = parent
	}
}

// FindPositionIn finds the presentation position lying expected document
// offsets into viewParent. Positions next to text are moved into the text.
func (m *Mapper) FindPositionIn(viewParent view.Container, expected int) view.Position {
	modelOffset, viewOffset := 0, 0
	for modelOffset < expected {
		node := viewParent.Child(viewOffset)
		if node == nil {
			break
		}
		length := m.ModelLength(node)
		if modelOffset+length > expected {
			switch typed := node.(type) {
			case *view.Text:
				return view.PositionAt(typed, expected-modelOffset)
			case *view.Element:
				if typed.CanHaveChildren() {
					return m.FindPositionIn(typed, expected-modelOffset)
				}
				return moveToTextNode(view.PositionAt(viewParent, viewOffset))
			}
		}
		modelOffset += length
		viewOffset++
	}
	return moveToTextNode(view.PositionAt(viewParent, viewOffset))
}

func moveToTextNode(pos view.Position) view.Position {
	if text, ok := pos.NodeBefore().(*view.Text); ok {
		return view.PositionAt(text, text.Len())
	}
	if text, ok := pos.NodeAfter().(*view.Text); ok {
		return view.PositionAt(text, 0)
	}
	return pos
}

// FindMappedViewAncestor returns the nearest bound container holding pos.
func (m *Mapper) FindMappedViewAncestor(pos view.Position) (view.Container, error) {
	var c view.Container
	switch typed := pos.Parent.(type) {
	case *view.Text:
		c = typed.Parent()
	case view.Container:
		c = typed
	}
	for c != nil {
		if _, ok := m.viewToModel[c.ID()]; ok {
			return c, nil
		}
		node, ok := c.(view.Node)
		if !ok {
			break
		}
		c = node.Parent()
	}
	return nil, &NoBindingError{Side: SideView, NodeID: uint64(pos.Parent.ID())}
}

// ToModelPosition maps a presentation position into the document tree.
func (m *Mapper) ToModelPosition(pos view.Position) (model.Position, error) {
	block, err := m.FindMappedViewAncestor(pos)
	if err != nil {
		return model.Position{}, err
	}
	offset := m.toModelOffset(pos.Parent, pos.Offset, block)
	return m.findModelPositionIn(m.viewToModel[block.ID()], offset), nil
}

func (m *Mapper) toModelOffset(holder view.Holder, offset int, block view.Container) int {
	if holder.ID() != block.ID() {
		node := holder.(view.Node)
		before := m.toModelOffset(node.Parent(), view.Index(node), block)
		if text, ok := holder.(*view.Text); ok {
			return before + min(offset, text.Len())
		}
		return before + m.toModelOffset(holder, offset, holder.(view.Container))
	}
	total := 0
	for i, child := range block.Children() {
		if i >= offset {
			break
		}
		total += m.ModelLength(child)
	}
	return total
}

func (m *Mapper) findModelPositionIn(parent model.Container, expected int) model.Position {
	flat, offset := 0, 0
	for _, child := range parent.Children() {
		if flat >= expected {
			break
		}
		length := m.viewLengthOf(child)
		if flat+length > expected {
			if el, ok := child.(*model.Element); ok {
				return m.findModelPositionIn(el, expected-flat)
			}
			return model.PositionAt(parent, offset+expected-flat)
		}
		flat += length
		offset += child.OffsetSize()
	}
	return model.PositionAt(parent, offset)
}

// ToViewRange maps both ends of a document range.
func (m *Mapper) ToViewRange(rng model.Range) (view.Range, error) {
	start, err := m.ToViewPosition(rng.Start)
	if err != nil {
		return view.Range{}, err
	}
	end, err := m.ToViewPosition(rng.End)
	if err != nil {
		return view.Range{}, err
	}
	return view.Range{Start: start, End: end}, nil
}

// ToModelRange maps both ends of a presentation range.
func (m *Mapper) ToModelRange(rng view.Range) (model.Range, error) {
	start, err := m.ToModelPosition(rng.Start)
	if err != nil {
		return model.Range{}, err
	}
	end, err := m.ToModelPosition(rng.End)
	if err != nil {
		return model.Range{}, err
	}
	return model.Range{Start: start, End: end}, nil
}

// BindElementToMarker records that el renders part of the named marker.
func (m *Mapper) BindElementToMarker(el *view.Element, name string) {
	if !slices.Contains(m.markerToElements[name], el) {
		m.markerToElements[name] = append(m.markerToElements[name], el)
	}
	if !slices.Contains(m.elementToMarkers[el.ID()], name) {
		m.elementToMarkers[el.ID()] = append(m.elementToMarkers[el.ID()], name)
	}
}

// UnbindElementFromMarkerName forgets a marker element binding.
func (m *Mapper) UnbindElementFromMarkerName(el *view.Element, name string) {
	m.markerToElements[name] = slices.DeleteFunc(m.markerToElements[name], func(e *view.Element) bool { return e == el })
	if len(m.markerToElements[name]) == 0 {
		delete(m.markerToElements, name)
	}
	m.elementToMarkers[el.ID()] = slices.DeleteFunc(m.elementToMarkers[el.ID()], func(n string) bool { return n == name })
	if len(m.elementToMarkers[el.ID()]) == 0 {
		delete(m.elementToMarkers, el.ID())
	}
}

// MarkerNameToElements returns the elements bound to a marker.
func (m *Mapper) MarkerNameToElements(name string) []*view.Element {
	return slices.Clone(m.markerToElements[name])
}

// ElementToMarkerNames returns the markers an element is bound to.
func (m *Mapper) ElementToMarkerNames(el *view.Element) []string {
	return slices.Clone(m.elementToMarkers[el.ID()])
}
