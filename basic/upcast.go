package basic

import (
	"fmt"
	"strings"

	"github.com/rgonek/docconv/conversion"
	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

var textStyleAliases = map[string][]string{
	AttrBold:          {"strong", "b"},
	AttrItalic:        {"em", "i"},
	AttrCode:          {"code"},
	AttrStrikethrough: {"s", "del", "strike"},
}

// Upcast registers the presentation to document converters.
func Upcast(u *conversion.UpcastDispatcher, opts Options) {
	priority := opts.Priority

	for _, e := range simpleElements {
		u.ElementToElement(e.view, func(_ *view.Element, api *conversion.UpcastConversionAPI) *model.Element {
			return api.Writer.CreateElement(e.model, nil)
		}, priority)
	}
	for level := 1; level <= 6; level++ {
		u.ElementToElement(fmt.Sprintf("h%d", level), func(_ *view.Element, api *conversion.UpcastConversionAPI) *model.Element {
			return api.Writer.CreateElement(Heading, map[string]any{AttrLevel: level})
		}, priority)
	}
	u.On("element:pre", upcastCodeBlock, priority)

	for key, names := range textStyleAliases {
		for _, name := range names {
			u.ElementToAttribute(name, key, func(*view.Element) (any, bool) { return true, true }, priority)
		}
	}
	u.ElementToAttribute("a", AttrLinkHref, func(el *view.Element) (any, bool) {
		href, ok := el.Attribute("href")
		return href, ok && href != ""
	}, priority)

	u.AttributeToAttribute("", "style", AttrAlignment, textAlign, priority+conversion.Low)
	u.On("text", dropLayoutWhitespace, priority)

	for _, group := range opts.DataMarkerGroups {
		u.DataToMarker(group, priority)
	}
}

// textAlign extracts the text-align declaration of a style attribute.
func textAlign(style string) (any, bool) {
	for decl := range strings.SplitSeq(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(prop) == "text-align" {
			value = strings.TrimSpace(value)
			return value, value != ""
		}
	}
	return nil, false
}

// dropLayoutWhitespace consumes whitespace-only text containing a line
// break outside preformatted content, as HTML indentation produces.
func dropLayoutWhitespace(_ *conversion.EventInfo, data *conversion.UpcastEventData, api *conversion.UpcastConversionAPI) error {
	text, ok := data.ViewItem.(*view.Text)
	if !ok || strings.TrimSpace(text.Data()) != "" || !strings.Contains(text.Data(), "\n") {
		return nil
	}
	for _, ancestor := range view.Ancestors(text) {
		if el, ok := ancestor.(*view.Element); ok && el.Name() == "pre" {
			return nil
		}
	}
	api.Consumable.Consume(text, conversion.AspectText)
	return nil
}

func upcastCodeBlock(_ *conversion.EventInfo, data *conversion.UpcastEventData, api *conversion.UpcastConversionAPI) error {
	pre, ok := data.ViewItem.(*view.Element)
	if !ok || data.ModelRange != nil || !api.Consumable.Test(pre, conversion.AspectName) {
		return nil
	}
	var code *view.Element
	if pre.ChildCount() == 1 {
		if el, ok := pre.Child(0).(*view.Element); ok && el.Name() == "code" {
			code = el
		}
	}
	attrs := map[string]any{}
	source := view.Container(pre)
	if code != nil {
		source = code
		for _, class := range code.Classes() {
			if lang, ok := strings.CutPrefix(class, "language-"); ok && lang != "" {
				attrs[AttrLanguage] = lang
			}
		}
	}

	block := api.Writer.CreateElement(CodeBlock, attrs)
	inserted, err := api.SafeInsert(block, data.ModelCursor)
	if err != nil || !inserted {
		return err
	}
	api.Consumable.Consume(pre, conversion.AspectName)
	if code != nil {
		api.Consumable.Consume(code, conversion.AspectName)
		api.Consumable.Consume(code, conversion.AttributeAspect("class"))
	}
	if content := textContent(source); content != "" {
		if _, err := api.Writer.Append(api.Writer.CreateText(content, nil), block); err != nil {
			return err
		}
	}
	api.UpdateConversionResult(block, data)
	return nil
}

func textContent(c view.Container) string {
	var sb strings.Builder
	for _, child := range c.Children() {
		switch typed := child.(type) {
		case *view.Text:
			sb.WriteString(typed.Data())
		case *view.Element:
			if typed.Name() == "br" {
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(textContent(typed))
		}
	}
	return sb.String()
}
