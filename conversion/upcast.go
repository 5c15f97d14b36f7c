package conversion

import (
	"fmt"

	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// Attributes of the temporary $marker elements upcast converters create.
const (
	MarkerNameAttribute     = "data-name"
	MarkerBoundaryAttribute = "data-boundary"

	BoundaryStart = "start"
	BoundaryEnd   = "end"
)

// UpcastEventData carries one presentation node through the converters.
// A converter that handles the node sets ModelRange to what it produced and
// ModelCursor to where conversion continues.
type UpcastEventData struct {
	ViewItem    view.Holder
	ModelCursor model.Position
	ModelRange  *model.Range
}

// UpcastConversionAPI is shared by every listener of one Convert call.
type UpcastConversionAPI struct {
	Dispatcher *UpcastDispatcher
	Consumable *Consumable
	Writer     *model.Writer
	Schema     model.Schema
	Options    map[string]any

	context []string
}

// UpcastCallback handles an upcast event.
type UpcastCallback = Callback[*UpcastEventData, *UpcastConversionAPI]

// UpcastDispatcher builds a document fragment from a presentation tree by
// firing events that converters listen to. It knows nothing about the
// schema itself; converters ask the schema through SafeInsert.
type UpcastDispatcher struct {
	emitter Emitter[*UpcastEventData, *UpcastConversionAPI]
	schema  model.Schema
}

// NewUpcastDispatcher returns a dispatcher checking insertions against
// schema. Unknown elements are replaced by their converted children and text
// is copied verbatim where the schema allows it.
func NewUpcastDispatcher(schema model.Schema) *UpcastDispatcher {
	d := &UpcastDispatcher{schema: schema}
	d.On("element:*", convertChildrenDefault, Lowest)
	d.On("documentFragment", convertChildrenDefault, Lowest)
	d.On("text", convertTextDefault, Lowest)
	return d
}

func (d *UpcastDispatcher) Schema() model.Schema { return d.schema }

// On registers a converter. Element converters listen to "element:<name>",
// or to "element:*" for every element.
func (d *UpcastDispatcher) On(event string, callback UpcastCallback, priority Priority) func() {
	return d.emitter.On(event, callback, priority)
}

// Convert converts node into a new document fragment. context names the
// ancestors the fragment is meant to be inserted into and defaults to the
// document root. Marker boundaries found in node end up in the fragment's
// Markers.
func (d *UpcastDispatcher) Convert(node view.Holder, writer *model.Writer, context []string, options map[string]any) (*model.DocumentFragment, error) {
	if len(context) == 0 {
		context = []string{model.RootElementName}
	}
	if options == nil {
		options = map[string]any{}
	}
	api := &UpcastConversionAPI{
		Dispatcher: d,
		Consumable: ConsumableFromView(node),
		Writer:     writer,
		Schema:     d.schema,
		Options:    options,
		context:    context,
	}
	frag := writer.CreateDocumentFragment()
	if _, _, err := api.ConvertItem(node, model.PositionAt(frag, 0)); err != nil {
		return nil, err
	}
	markers, err := extractMarkers(frag, writer)
	if err != nil {
		return nil, err
	}
	frag.Markers = markers
	return frag, nil
}

func (d *UpcastDispatcher) eventFor(node view.Holder) (string, error) {
	switch n := node.(type) {
	case *view.Element:
		return "element:" + n.Name(), nil
	case *view.Text:
		return "text", nil
	case *view.DocumentFragment:
		return "documentFragment", nil
	}
	return "", fmt.Errorf("cannot upcast node %d of type %T", node.ID(), node)
}

// ConvertItem converts one presentation node at cursor. It returns the
// produced range, nil when nothing converted the node, and the cursor to
// continue from.
func (api *UpcastConversionAPI) ConvertItem(node view.Holder, cursor model.Position) (*model.Range, model.Position, error) {
	event, err := api.Dispatcher.eventFor(node)
	if err != nil {
		return nil, cursor, err
	}
	data := &UpcastEventData{ViewItem: node, ModelCursor: cursor}
	if _, err := api.Dispatcher.emitter.Fire(event, data, api); err != nil {
		return nil, cursor, err
	}
	if data.ModelRange == nil {
		return nil, cursor, nil
	}
	return data.ModelRange, data.ModelCursor, nil
}

// ConvertChildren converts the children of parent one after another,
// starting at cursor. The returned range spans everything they produced.
func (api *UpcastConversionAPI) ConvertChildren(parent view.Container, cursor model.Position) (model.Range, model.Position, error) {
	start := cursor
	for _, child := range parent.Children() {
		_, next, err := api.ConvertItem(child, cursor)
		if err != nil {
			return model.Range{}, cursor, err
		}
		cursor = next
	}
	return model.Range{Start: start, End: cursor}, cursor, nil
}

// ContextAt returns the schema context of pos: the conversion context
// followed by the names of the elements enclosing pos.
func (api *UpcastConversionAPI) ContextAt(pos model.Position) []string {
	return model.ContextOf(pos, api.context...)
}

// SafeInsert inserts node at pos if the schema allows it there. It reports
// false, leaving the document untouched, when it does not.
func (api *UpcastConversionAPI) SafeInsert(node model.Node, pos model.Position) (bool, error) {
	if !api.Schema.CheckChild(api.ContextAt(pos), model.Name(node)) {
		return false, nil
	}
	if _, err := api.Writer.Insert(node, pos); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateConversionResult records that el was inserted at data.ModelCursor
// and converted into. The range covers el and the cursor moves after it.
func (api *UpcastConversionAPI) UpdateConversionResult(el model.Node, data *UpcastEventData) {
	rng := model.RangeOn(el)
	data.ModelRange = &rng
	data.ModelCursor = model.PositionAfter(el)
}

func convertChildrenDefault(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
	if data.ModelRange != nil {
		return nil
	}
	parent, ok := data.ViewItem.(view.Container)
	if !ok || !api.Consumable.Consume(data.ViewItem, AspectName) {
		return nil
	}
	rng, cursor, err := api.ConvertChildren(parent, data.ModelCursor)
	if err != nil {
		return err
	}
	data.ModelRange = &rng
	data.ModelCursor = cursor
	return nil
}

func convertTextDefault(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
	text, ok := data.ViewItem.(*view.Text)
	if !ok || data.ModelRange != nil || !api.Consumable.Test(text, AspectText) {
		return nil
	}
	node := api.Writer.CreateText(text.Data(), nil)
	inserted, err := api.SafeInsert(node, data.ModelCursor)
	if err != nil || !inserted {
		return err
	}
	api.Consumable.Consume(text, AspectText)
	rng := model.Range{Start: data.ModelCursor, End: data.ModelCursor.ShiftedBy(text.Len())}
	data.ModelRange = &rng
	data.ModelCursor = rng.End
	return nil
}

// extractMarkers removes the $marker elements of frag in document order and
// returns the ranges they delimited.
func extractMarkers(frag *model.DocumentFragment, writer *model.Writer) (map[string]model.Range, error) {
	var elements []*model.Element
	collectMarkerElements(frag, &elements)

	markers := map[string]model.Range{}
	for _, el := range elements {
		name, _ := el.Attribute(MarkerNameAttribute)
		markerName, _ := name.(string)
		boundary, _ := el.Attribute(MarkerBoundaryAttribute)
		pos := model.PositionBefore(el)

		rng, seen := markers[markerName]
		switch {
		case !seen:
			rng = model.NewRange(pos)
		case boundary == BoundaryEnd:
			rng.End = pos
		}
		markers[markerName] = rng
		if err := writer.Remove(el); err != nil {
			return nil, err
		}
	}
	return markers, nil
}

func collectMarkerElements(c model.Container, out *[]*model.Element) {
	for _, child := range c.Children() {
		el, ok := child.(*model.Element)
		if !ok {
			continue
		}
		if el.Name() == model.MarkerName {
			*out = append(*out, el)
			continue
		}
		collectMarkerElements(el, out)
	}
}
