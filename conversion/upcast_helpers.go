package conversion

import (
	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// ModelElementCreator builds the document element for a presentation
// element. Returning nil leaves the element to other converters.
type ModelElementCreator func(el *view.Element, api *UpcastConversionAPI) *model.Element

// ElementToElement converts presentation elements named viewName into the
// document element built by create and converts their children into it.
// When the schema rejects the element at the cursor nothing is consumed and
// lower priority converters get their turn.
func (d *UpcastDispatcher) ElementToElement(viewName string, create ModelElementCreator, priority Priority) func() {
	return d.On("element:"+viewName, func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		viewEl, ok := data.ViewItem.(*view.Element)
		if !ok || data.ModelRange != nil || !api.Consumable.Test(viewEl, AspectName) {
			return nil
		}
		modelEl := create(viewEl, api)
		if modelEl == nil {
			return nil
		}
		inserted, err := api.SafeInsert(modelEl, data.ModelCursor)
		if err != nil || !inserted {
			return err
		}
		api.Consumable.Consume(viewEl, AspectName)
		if _, _, err := api.ConvertChildren(viewEl, model.PositionAt(modelEl, 0)); err != nil {
			return err
		}
		api.UpdateConversionResult(modelEl, data)
		return nil
	}, priority)
}

// ElementToAttribute converts the children of presentation elements named
// viewName and sets the key attribute on the text they produced. value
// returns the attribute value, or false to decline the element. Text that
// already carries the attribute keeps its value.
func (d *UpcastDispatcher) ElementToAttribute(viewName, key string, value func(el *view.Element) (any, bool), priority Priority) func() {
	return d.On("element:"+viewName, func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		viewEl, ok := data.ViewItem.(*view.Element)
		if !ok || data.ModelRange != nil || !api.Consumable.Test(viewEl, AspectName) {
			return nil
		}
		v, ok := value(viewEl)
		if !ok {
			return nil
		}
		api.Consumable.Consume(viewEl, AspectName)
		rng, cursor, err := api.ConvertChildren(viewEl, data.ModelCursor)
		if err != nil {
			return err
		}

		var targets []model.Range
		for _, item := range rng.Items() {
			proxy, ok := item.(model.TextProxy)
			if !ok {
				continue
			}
			if _, has := proxy.Text.Attribute(key); has {
				continue
			}
			target := proxy.Range()
			context := append(api.ContextAt(target.Start), model.TextName)
			if api.Schema.CheckAttribute(context, key) {
				targets = append(targets, target)
			}
		}
		for _, target := range targets {
			if err := api.Writer.SetAttributeOnRange(key, v, target, nil); err != nil {
				return err
			}
		}
		data.ModelRange = &rng
		data.ModelCursor = cursor
		return nil
	}, priority)
}

// AttributeToAttribute copies the viewKey attribute of presentation
// elements named viewName, or of every element when viewName is empty,
// onto the document elements they were converted into. It must run after
// the element converter, so Low is the usual priority.
func (d *UpcastDispatcher) AttributeToAttribute(viewName, viewKey, modelKey string, value func(viewValue string) (any, bool), priority Priority) func() {
	event := "element:*"
	if viewName != "" {
		event = "element:" + viewName
	}
	return d.On(event, func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		viewEl, ok := data.ViewItem.(*view.Element)
		if !ok || data.ModelRange == nil || !api.Consumable.Test(viewEl, AttributeAspect(viewKey)) {
			return nil
		}
		raw, _ := viewEl.Attribute(viewKey)
		v, ok := value(raw)
		if !ok {
			return nil
		}
		applied := false
		for _, item := range data.ModelRange.ShallowItems() {
			el, ok := item.(*model.Element)
			if !ok || !api.Schema.CheckAttribute(api.ContextAt(model.PositionAt(el, 0)), modelKey) {
				continue
			}
			api.Writer.SetAttribute(modelKey, v, el)
			applied = true
		}
		if applied {
			api.Consumable.Consume(viewEl, AttributeAspect(viewKey))
		}
		return nil
	}, priority)
}

// ElementToMarker turns presentation elements named viewName into a
// collapsed marker whose name is returned by nameOf.
func (d *UpcastDispatcher) ElementToMarker(viewName string, nameOf func(el *view.Element) string, priority Priority) func() {
	return d.On("element:"+viewName, func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		return upcastMarkerBoundary(data, api, nameOf, "")
	}, priority)
}

// DataToMarker reads back the "<group>-start" and "<group>-end" elements
// written by DowncastDispatcher.MarkerToData.
func (d *UpcastDispatcher) DataToMarker(group string, priority Priority) {
	nameOf := func(el *view.Element) string {
		if name, ok := el.Attribute("name"); ok {
			return group + ":" + name
		}
		return group
	}
	d.On("element:"+group+"-start", func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		return upcastMarkerBoundary(data, api, nameOf, BoundaryStart)
	}, priority)
	d.On("element:"+group+"-end", func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		return upcastMarkerBoundary(data, api, nameOf, BoundaryEnd)
	}, priority)
}

func upcastMarkerBoundary(data *UpcastEventData, api *UpcastConversionAPI, nameOf func(el *view.Element) string, boundary string) error {
	viewEl, ok := data.ViewItem.(*view.Element)
	if !ok || data.ModelRange != nil || !api.Consumable.Consume(viewEl, AspectName) {
		return nil
	}
	attrs := map[string]any{MarkerNameAttribute: nameOf(viewEl)}
	if boundary != "" {
		attrs[MarkerBoundaryAttribute] = boundary
	}
	marker := api.Writer.CreateElement(model.MarkerName, attrs)
	if _, err := api.Writer.Insert(marker, data.ModelCursor); err != nil {
		return err
	}
	api.UpdateConversionResult(marker, data)
	return nil
}
