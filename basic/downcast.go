package basic

import (
	"fmt"

	"github.com/rgonek/docconv/conversion"
	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// Options selects how markers are presented and the priority the
// converters are registered with.
type Options struct {
	// DataMarkerGroups are written as <group-start/> and <group-end/>
	// boundary elements and read back into markers.
	DataMarkerGroups []string
	// HighlightGroups wrap the text they cover in a highlight span. They
	// are presentation only and are not read back.
	HighlightGroups []string
	Priority        conversion.Priority
}

// Register adds the basic converters to both dispatchers.
func Register(down *conversion.DowncastDispatcher, up *conversion.UpcastDispatcher, opts Options) {
	Downcast(down, opts)
	Upcast(up, opts)
}

var simpleElements = []struct {
	model, view string
	empty       bool
}{
	{Paragraph, "p", false},
	{BlockQuote, "blockquote", false},
	{BulletedList, "ul", false},
	{NumberedList, "ol", false},
	{ListItem, "li", false},
	{HorizontalLine, "hr", true},
	{SoftBreak, "br", true},
}

var textStyles = []struct {
	key, view string
}{
	{AttrBold, "strong"},
	{AttrItalic, "em"},
	{AttrCode, "code"},
	{AttrStrikethrough, "s"},
}

// Downcast registers the document to presentation converters.
func Downcast(d *conversion.DowncastDispatcher, opts Options) {
	priority := opts.Priority

	for _, e := range simpleElements {
		d.ElementToElement(e.model, func(_ *model.Element, api *conversion.DowncastConversionAPI) *view.Element {
			if e.empty {
				return api.Writer.CreateEmptyElement(e.view, nil)
			}
			return api.Writer.CreateContainerElement(e.view, nil)
		}, priority)
	}

	d.ElementToElement(Heading, func(el *model.Element, api *conversion.DowncastConversionAPI) *view.Element {
		api.Consumable.Consume(el, conversion.AttributeAspect(AttrLevel))
		return api.Writer.CreateContainerElement(fmt.Sprintf("h%d", levelOf(el)), nil)
	}, priority)

	d.On("insert:"+CodeBlock, downcastCodeBlock, priority)

	for _, s := range textStyles {
		d.AttributeToElement(s.key, func(_ any, api *conversion.DowncastConversionAPI) *view.Element {
			return api.Writer.CreateAttributeElement(s.view, nil)
		}, priority)
	}
	d.AttributeToElement(AttrLinkHref, func(value any, api *conversion.DowncastConversionAPI) *view.Element {
		href, ok := value.(string)
		if !ok {
			return nil
		}
		return api.Writer.CreateAttributeElement("a", map[string]string{"href": href})
	}, priority)

	d.AttributeToAttribute(AttrAlignment, func(value any) (string, string, bool) {
		align, ok := value.(string)
		if !ok || align == "" {
			return "", "", false
		}
		return "style", "text-align:" + align, true
	}, priority)

	for _, group := range opts.DataMarkerGroups {
		d.MarkerToData(group, priority)
	}
	for _, group := range opts.HighlightGroups {
		d.MarkerToHighlight(group, func(_ *conversion.DowncastEventData, api *conversion.DowncastConversionAPI) *view.Element {
			return api.Writer.CreateAttributeElement("span", map[string]string{"class": group + "-highlight"})
		}, priority)
	}
}

// downcastCodeBlock renders <pre><code class="language-x"> and binds the
// code block to the inner code element so its text lands there.
func downcastCodeBlock(_ *conversion.EventInfo, data *conversion.DowncastEventData, api *conversion.DowncastConversionAPI) error {
	el, ok := data.Item.(*model.Element)
	if !ok || !api.Consumable.Consume(el, conversion.AspectInsert) {
		return nil
	}
	var attrs map[string]string
	if lang, _ := el.Attribute(AttrLanguage); lang != nil {
		if s, ok := lang.(string); ok && s != "" {
			attrs = map[string]string{"class": "language-" + s}
		}
	}
	api.Consumable.Consume(el, conversion.AttributeAspect(AttrLanguage))

	pos, err := api.Mapper.ToViewPosition(model.PositionBefore(el))
	if err != nil {
		return err
	}
	code := api.Writer.CreateContainerElement("code", attrs)
	pre := api.Writer.CreateContainerElement("pre", nil, code)
	api.Mapper.BindElements(el, code)
	_, err = api.Writer.Insert(pos, pre)
	return err
}
