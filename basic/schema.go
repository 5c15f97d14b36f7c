// Package basic is a ready-made document kind: a schema plus the downcast
// and upcast converters for paragraphs, headings, quotes, lists, code
// blocks, basic text styles, alignment and marker boundaries.
package basic

import (
	"github.com/rgonek/docconv/model"
)

// Element names.
const (
	Paragraph      = "paragraph"
	Heading        = "heading"
	BlockQuote     = "blockQuote"
	BulletedList   = "bulletedList"
	NumberedList   = "numberedList"
	ListItem       = "listItem"
	CodeBlock      = "codeBlock"
	HorizontalLine = "horizontalLine"
	SoftBreak      = "softBreak"
)

// Attribute keys.
const (
	AttrLevel     = "level"
	AttrAlignment = "alignment"
	AttrLanguage  = "language"

	AttrBold          = "bold"
	AttrItalic        = "italic"
	AttrCode          = "code"
	AttrStrikethrough = "strikethrough"
	AttrLinkHref      = "linkHref"
)

var definitions = []struct {
	name string
	def  model.ItemDefinition
}{
	{Paragraph, model.ItemDefinition{
		AllowIn:         []string{model.RootElementName, BlockQuote, ListItem},
		AllowAttributes: []string{AttrAlignment},
		IsBlock:         true,
	}},
	{Heading, model.ItemDefinition{
		AllowIn:         []string{model.RootElementName, BlockQuote},
		AllowAttributes: []string{AttrLevel, AttrAlignment},
		IsBlock:         true,
	}},
	{BlockQuote, model.ItemDefinition{
		AllowIn: []string{model.RootElementName, BlockQuote},
	}},
	{BulletedList, model.ItemDefinition{
		AllowIn: []string{model.RootElementName, BlockQuote, ListItem},
	}},
	{NumberedList, model.ItemDefinition{
		AllowIn: []string{model.RootElementName, BlockQuote, ListItem},
	}},
	// List items take text directly so tight lists need no paragraph.
	{ListItem, model.ItemDefinition{
		AllowIn: []string{BulletedList, NumberedList},
		IsBlock: true,
	}},
	{CodeBlock, model.ItemDefinition{
		AllowIn:         []string{model.RootElementName, BlockQuote, ListItem},
		AllowAttributes: []string{AttrLanguage},
		IsBlock:         true,
	}},
	{HorizontalLine, model.ItemDefinition{
		AllowIn:  []string{model.RootElementName, BlockQuote},
		IsObject: true,
	}},
	{SoftBreak, model.ItemDefinition{
		AllowIn:  []string{model.BlockGroup},
		IsObject: true,
	}},
}

// TextAttributes lists the text attributes the schema allows.
var TextAttributes = []string{AttrBold, AttrItalic, AttrCode, AttrStrikethrough, AttrLinkHref}

// NewSchema returns a schema with the basic elements registered.
func NewSchema() *model.SimpleSchema {
	s := model.NewSchema()
	for _, d := range definitions {
		if err := s.Register(d.name, d.def); err != nil {
			panic(err)
		}
	}
	if err := s.Extend(model.TextName, model.ItemDefinition{AllowAttributes: TextAttributes}); err != nil {
		panic(err)
	}
	return s
}

// levelOf reads the heading level, which is an int when built in code and
// a float64 after a JSON round trip.
func levelOf(el *model.Element) int {
	raw, _ := el.Attribute(AttrLevel)
	level := 1
	switch v := raw.(type) {
	case int:
		level = v
	case float64:
		level = int(v)
	}
	return min(max(level, 1), 6)
}
