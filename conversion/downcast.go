package conversion

import (
	"maps"
	"slices"

	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// DowncastEventData describes the document fact a downcast event carries.
// Only the fields relevant to the event are set.
type DowncastEventData struct {
	// Item is the element or text slice being converted. It is nil for the
	// whole-range marker events.
	Item  model.Item
	Range model.Range

	AttributeKey      string
	AttributeOldValue any
	AttributeNewValue any

	MarkerName  string
	MarkerRange model.Range
}

// DowncastConversionAPI is shared by every listener of one top-level
// conversion call.
type DowncastConversionAPI struct {
	Dispatcher *DowncastDispatcher
	Mapper     *Mapper
	Consumable *Consumable
	Writer     *view.Writer
	// Options is the same map for every event of the call.
	Options map[string]any

	// dispatched holds the items whose insert events already fired.
	dispatched map[any]bool
	depth      int
}

// DowncastCallback handles a downcast event.
type DowncastCallback = Callback[*DowncastEventData, *DowncastConversionAPI]

// DowncastDispatcher turns document insertions, attribute changes and
// marker changes into presentation tree changes by firing events that
// converters listen to.
type DowncastDispatcher struct {
	emitter Emitter[*DowncastEventData, *DowncastConversionAPI]
	mapper  *Mapper

	// OnUnconverted, when set, is called for every item no converter
	// consumed during an insert conversion.
	OnUnconverted func(item model.Item)
}

// NewDowncastDispatcher returns a dispatcher using mapper. Text is
// converted to plain presentation text unless a converter with a priority
// above Lowest consumes it first.
func NewDowncastDispatcher(mapper *Mapper) *DowncastDispatcher {
	d := &DowncastDispatcher{mapper: mapper}
	d.On("insert:"+model.TextName, insertText, Lowest)
	return d
}

func (d *DowncastDispatcher) Mapper() *Mapper { return d.mapper }

// On registers a converter. See Emitter.On for event name matching.
func (d *DowncastDispatcher) On(event string, callback DowncastCallback, priority Priority) func() {
	return d.emitter.On(event, callback, priority)
}

func (d *DowncastDispatcher) newAPI(writer *view.Writer, options map[string]any) *DowncastConversionAPI {
	if options == nil {
		options = map[string]any{}
	}
	return &DowncastConversionAPI{
		Dispatcher: d,
		Mapper:     d.mapper,
		Consumable: NewConsumable(),
		Writer:     writer,
		Options:    options,
		dispatched: map[any]bool{},
	}
}

// ConvertInsert converts the content of rng. Each call gets its own
// consumable ledger.
func (d *DowncastDispatcher) ConvertInsert(rng model.Range, writer *view.Writer, options map[string]any) error {
	return d.newAPI(writer, options).ConvertInsert(rng)
}

// ConvertAttribute converts a change of attribute key on every item of rng.
func (d *DowncastDispatcher) ConvertAttribute(rng model.Range, key string, oldValue, newValue any, writer *view.Writer, options map[string]any) error {
	api := d.newAPI(writer, options)
	items := rng.Items()
	for _, item := range items {
		api.Consumable.Add(item, AttributeAspect(key))
	}
	for _, item := range items {
		data := &DowncastEventData{
			Item:              item,
			Range:             model.ItemRange(item),
			AttributeKey:      key,
			AttributeOldValue: oldValue,
			AttributeNewValue: newValue,
		}
		if err := d.fire("attribute:"+key+":"+item.ItemName(), data, api); err != nil {
			return err
		}
	}
	return nil
}

// ConvertMarkerAdd converts a marker added over rng.
func (d *DowncastDispatcher) ConvertMarkerAdd(name string, rng model.Range, writer *view.Writer, options map[string]any) error {
	return d.newAPI(writer, options).ConvertMarkerAdd(name, rng)
}

// ConvertMarkerRemove converts the removal of a marker that covered rng.
func (d *DowncastDispatcher) ConvertMarkerRemove(name string, rng model.Range, writer *view.Writer, options map[string]any) error {
	return d.newAPI(writer, options).ConvertMarkerRemove(name, rng)
}

func (d *DowncastDispatcher) fire(event string, data *DowncastEventData, api *DowncastConversionAPI) error {
	_, err := d.emitter.Fire(event, data, api)
	return err
}

// ConvertInsert converts the content of rng from inside a converter. The
// ledger of the enclosing call is shared, so facts consumed there stay
// consumed. Unconverted items are reported once, by the outermost call.
func (api *DowncastConversionAPI) ConvertInsert(rng model.Range) error {
	d := api.Dispatcher
	items := rng.Items()
	for _, item := range items {
		// Facts already known to a shared ledger keep their state.
		if api.Consumable.Known(item, AspectInsert) {
			continue
		}
		api.Consumable.Add(item, AspectInsert)
		for key := range item.ItemAttributes() {
			api.Consumable.Add(item, AttributeAspect(key))
		}
	}
	api.depth++
	defer func() { api.depth-- }()
	for _, item := range items {
		// Items a nested call already handled are not fired again.
		if api.dispatched[item] {
			continue
		}
		api.dispatched[item] = true
		itemRange := model.ItemRange(item)
		if err := d.fire("insert:"+item.ItemName(), &DowncastEventData{Item: item, Range: itemRange}, api); err != nil {
			return err
		}
		attrs := item.ItemAttributes()
		for _, key := range sortedKeys(attrs) {
			if !api.Consumable.Test(item, AttributeAspect(key)) {
				continue
			}
			data := &DowncastEventData{
				Item:              item,
				Range:             itemRange,
				AttributeKey:      key,
				AttributeNewValue: attrs[key],
			}
			if err := d.fire("attribute:"+key+":"+item.ItemName(), data, api); err != nil {
				return err
			}
		}
	}
	if d.OnUnconverted != nil && api.depth == 1 {
		for _, item := range items {
			if api.Consumable.Test(item, AspectInsert) {
				d.OnUnconverted(item)
			}
		}
	}
	return nil
}

// ConvertMarkerAdd fires the generic and the name specific marker events
// for the whole range. When neither consumed the marker, both are fired
// again for every item of the range. Marker conversion always uses a fresh
// ledger; the mapper and options are shared.
func (api *DowncastConversionAPI) ConvertMarkerAdd(name string, rng model.Range) error {
	d := api.Dispatcher
	sub := *api
	sub.Consumable = NewConsumable()
	aspect := AddMarkerAspect(name)

	sub.Consumable.Add(name, aspect)
	data := &DowncastEventData{MarkerName: name, MarkerRange: rng, Range: rng}
	if err := d.fireBoth("addMarker", name, data, &sub); err != nil {
		return err
	}
	if !sub.Consumable.Test(name, aspect) {
		return nil
	}

	items := rng.Items()
	for _, item := range items {
		sub.Consumable.Add(item, aspect)
	}
	for _, item := range items {
		data := &DowncastEventData{Item: item, Range: model.ItemRange(item), MarkerName: name, MarkerRange: rng}
		if err := d.fireBoth("addMarker", name, data, &sub); err != nil {
			return err
		}
	}
	return nil
}

// ConvertMarkerRemove fires the generic and the name specific removal
// events.
func (api *DowncastConversionAPI) ConvertMarkerRemove(name string, rng model.Range) error {
	sub := *api
	sub.Consumable = NewConsumable()
	sub.Consumable.Add(name, RemoveMarkerAspect(name))
	data := &DowncastEventData{MarkerName: name, MarkerRange: rng, Range: rng}
	return api.Dispatcher.fireBoth("removeMarker", name, data, &sub)
}

// fireBoth runs the generic and the name specific marker listeners as one
// priority ordered list.
func (d *DowncastDispatcher) fireBoth(kind, name string, data *DowncastEventData, api *DowncastConversionAPI) error {
	_, err := d.emitter.FireMerged([]string{kind, kind + ":" + name}, data, api)
	return err
}

func insertText(_ *EventInfo, data *DowncastEventData, api *DowncastConversionAPI) error {
	proxy, ok := data.Item.(model.TextProxy)
	if !ok || !api.Consumable.Consume(data.Item, AspectInsert) {
		return nil
	}
	pos, err := api.Mapper.ToViewPosition(data.Range.Start)
	if err != nil {
		return err
	}
	_, err = api.Writer.Insert(pos, api.Writer.CreateText(proxy.Data()))
	return err
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
