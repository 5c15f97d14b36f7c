package conversion

import (
	"strings"

	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// ElementCreator builds the presentation element for a document element.
// Returning nil leaves the element to other converters.
type ElementCreator func(el *model.Element, api *DowncastConversionAPI) *view.Element

// ValueElementCreator builds the wrapper for a text attribute value.
type ValueElementCreator func(value any, api *DowncastConversionAPI) *view.Element

// MarkerElementCreator builds the element for the opening or closing
// boundary of a marker.
type MarkerElementCreator func(data *DowncastEventData, opening bool, api *DowncastConversionAPI) *view.Element

// MarkerHighlightCreator builds the attribute element wrapping the text a
// marker covers.
type MarkerHighlightCreator func(data *DowncastEventData, api *DowncastConversionAPI) *view.Element

// ElementToElement converts document elements named modelName into the
// container element built by create, binding the two.
func (d *DowncastDispatcher) ElementToElement(modelName string, create ElementCreator, priority Priority) func() {
	return d.On("insert:"+modelName, func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		el, ok := data.Item.(*model.Element)
		if !ok || !api.Consumable.Test(el, AspectInsert) {
			return nil
		}
		viewEl := create(el, api)
		if viewEl == nil {
			return nil
		}
		api.Consumable.Consume(el, AspectInsert)
		pos, err := api.Mapper.ToViewPosition(model.PositionBefore(el))
		if err != nil {
			return err
		}
		api.Mapper.BindElements(el, viewEl)
		_, err = api.Writer.Insert(pos, viewEl)
		return err
	}, priority)
}

// AttributeToElement wraps text carrying the key attribute in the
// attribute element built by create.
func (d *DowncastDispatcher) AttributeToElement(key string, create ValueElementCreator, priority Priority) func() {
	return d.On("attribute:"+key+":"+model.TextName, func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		if data.AttributeNewValue == nil || !api.Consumable.Test(data.Item, AttributeAspect(key)) {
			return nil
		}
		wrapper := create(data.AttributeNewValue, api)
		if wrapper == nil {
			return nil
		}
		api.Consumable.Consume(data.Item, AttributeAspect(key))
		viewRange, err := api.Mapper.ToViewRange(data.Range)
		if err != nil {
			return err
		}
		_, err = api.Writer.Wrap(viewRange, wrapper)
		return err
	}, priority)
}

// AttributeToAttribute copies the key attribute of document elements onto
// their bound presentation elements. convert returns the presentation
// attribute; a "class" attribute is added as a class.
func (d *DowncastDispatcher) AttributeToAttribute(key string, convert func(value any) (viewKey, viewValue string, ok bool), priority Priority) func() {
	return d.On("attribute:"+key, func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		el, ok := data.Item.(*model.Element)
		if !ok || data.AttributeNewValue == nil || !api.Consumable.Test(el, AttributeAspect(key)) {
			return nil
		}
		bound, ok := api.Mapper.ToViewElement(el)
		if !ok {
			return nil
		}
		viewEl, ok := bound.(*view.Element)
		if !ok {
			return nil
		}
		viewKey, viewValue, ok := convert(data.AttributeNewValue)
		if !ok {
			return nil
		}
		api.Consumable.Consume(el, AttributeAspect(key))
		if viewKey == "class" {
			for _, class := range strings.Fields(viewValue) {
				api.Writer.AddClass(class, viewEl)
			}
			return nil
		}
		api.Writer.SetAttribute(viewKey, viewValue, viewEl)
		return nil
	}, priority)
}

// MarkerToElement renders the boundaries of markers in group as elements
// inserted at the marker start and end. A collapsed marker gets only the
// opening element. Removing the marker removes the elements. An empty group
// matches every marker.
func (d *DowncastDispatcher) MarkerToElement(group string, create MarkerElementCreator, priority Priority) {
	d.On(markerEvent("addMarker", group), func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		if data.Item != nil || !api.Consumable.Test(data.MarkerName, AddMarkerAspect(data.MarkerName)) {
			return nil
		}
		start := create(data, true, api)
		if start == nil {
			return nil
		}
		api.Consumable.Consume(data.MarkerName, AddMarkerAspect(data.MarkerName))
		if err := insertMarkerElement(api, data.MarkerName, data.MarkerRange.Start, start); err != nil {
			return err
		}
		if data.MarkerRange.IsCollapsed() {
			return nil
		}
		end := create(data, false, api)
		if end == nil {
			return nil
		}
		return insertMarkerElement(api, data.MarkerName, data.MarkerRange.End, end)
	}, priority)

	d.On(markerEvent("removeMarker", group), func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		if !api.Consumable.Consume(data.MarkerName, RemoveMarkerAspect(data.MarkerName)) {
			return nil
		}
		for _, el := range api.Mapper.MarkerNameToElements(data.MarkerName) {
			api.Mapper.UnbindElementFromMarkerName(el, data.MarkerName)
			api.Writer.Remove(el)
		}
		return nil
	}, priority)
}

func insertMarkerElement(api *DowncastConversionAPI, name string, at model.Position, el *view.Element) error {
	pos, err := api.Mapper.ToViewPosition(at)
	if err != nil {
		return err
	}
	if _, err := api.Writer.Insert(pos, el); err != nil {
		return err
	}
	api.Mapper.BindElementToMarker(el, name)
	return nil
}

// MarkerToHighlight wraps every text slice covered by a marker of group in
// the attribute element built by create. Removing the marker unwraps them.
// An empty group matches every marker.
func (d *DowncastDispatcher) MarkerToHighlight(group string, create MarkerHighlightCreator, priority Priority) {
	d.On(markerEvent("addMarker", group), func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		if _, ok := data.Item.(model.TextProxy); !ok || !api.Consumable.Test(data.Item, AddMarkerAspect(data.MarkerName)) {
			return nil
		}
		wrapper := create(data, api)
		if wrapper == nil {
			return nil
		}
		api.Consumable.Consume(data.Item, AddMarkerAspect(data.MarkerName))
		viewRange, err := api.Mapper.ToViewRange(data.Range)
		if err != nil {
			return err
		}
		if _, err := api.Writer.Wrap(viewRange, wrapper); err != nil {
			return err
		}
		api.Mapper.BindElementToMarker(wrapper, data.MarkerName)
		return nil
	}, priority)

	d.On(markerEvent("removeMarker", group), func(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
		if !api.Consumable.Consume(data.MarkerName, RemoveMarkerAspect(data.MarkerName)) {
			return nil
		}
		for _, el := range api.Mapper.MarkerNameToElements(data.MarkerName) {
			api.Mapper.UnbindElementFromMarkerName(el, data.MarkerName)
			if el.Parent() == nil {
				continue
			}
			if err := api.Writer.Unwrap(el); err != nil {
				return err
			}
		}
		return nil
	}, priority)
}

// MarkerToData renders markers of group as "<group>-start" and
// "<group>-end" elements whose name attribute holds the part of the marker
// name after "<group>:". DataToMarker reads them back.
func (d *DowncastDispatcher) MarkerToData(group string, priority Priority) {
	d.MarkerToElement(group, func(data *DowncastEventData, opening bool, api *DowncastConversionAPI) *view.Element {
		var attrs map[string]string
		if name, ok := strings.CutPrefix(data.MarkerName, group+":"); ok {
			attrs = map[string]string{"name": name}
		}
		suffix := "-end"
		if opening {
			suffix = "-start"
		}
		return api.Writer.CreateUIElement(group+suffix, attrs)
	}, priority)
}

func markerEvent(kind, group string) string {
	if group == "" {
		return kind
	}
	return kind + ":" + group
}
