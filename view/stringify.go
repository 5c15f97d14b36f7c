package view

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	attributeElementNames = []string{"a", "b", "code", "em", "i", "mark", "s", "span", "strong", "sub", "sup", "u"}
	emptyElementNames     = []string{"br", "hr", "img", "input", "wbr"}
	containerElementNames = []string{
		"blockquote", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ol", "p", "pre",
		"table", "tbody", "td", "th", "thead", "tr", "ul",
	}
)

// KindFor guesses the element kind for a tag name coming from parsed input.
// Unknown childless elements are treated as empty elements.
func KindFor(name string, hasChildren bool) Kind {
	switch {
	case slices.Contains(attributeElementNames, name):
		return KindAttribute
	case slices.Contains(emptyElementNames, name):
		return KindEmpty
	case slices.Contains(containerElementNames, name), hasChildren:
		return KindContainer
	default:
		return KindEmpty
	}
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Stringify renders a node in a compact XML dialect: attributes sorted by
// key, empty and UI elements without children self-closed.
func Stringify(node Holder) string {
	var sb strings.Builder
	stringifyNode(&sb, node)
	return sb.String()
}

func stringifyNode(sb *strings.Builder, node Holder) {
	switch typed := node.(type) {
	case *Text:
		sb.WriteString(textEscaper.Replace(typed.data))
	case *DocumentFragment:
		for _, child := range typed.nodes {
			stringifyNode(sb, child)
		}
	case *Element:
		sb.WriteString("<")
		sb.WriteString(typed.name)
		keys := slices.Clone(typed.attrKeys)
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintf(sb, ` %s="%s"`, key, attrEscaper.Replace(typed.attrs[key]))
		}
		if len(typed.nodes) == 0 && !typed.CanHaveChildren() {
			sb.WriteString("/>")
			return
		}
		sb.WriteString(">")
		for _, child := range typed.nodes {
			stringifyNode(sb, child)
		}
		sb.WriteString("</")
		sb.WriteString(typed.name)
		sb.WriteString(">")
	}
}

// ParseXML reads the Stringify dialect back into a fragment.
func ParseXML(data string) (*DocumentFragment, error) {
	dec := xml.NewDecoder(strings.NewReader("<fragment>" + data + "</fragment>"))
	dec.Strict = true

	frag := NewDocumentFragment()
	type open struct {
		name  string
		attrs map[string]string
		nodes []Node
	}
	stack := []*open{}
	started := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse view XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !started {
				started = true
				continue
			}
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			stack = append(stack, &open{name: t.Name.Local, attrs: attrs})
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			el := newElement(KindFor(top.name, len(top.nodes) > 0), top.name, top.attrs)
			el.insertChildren(el, 0, top.nodes...)
			if len(stack) == 0 {
				frag.insertChildren(frag, frag.ChildCount(), el)
			} else {
				parent := stack[len(stack)-1]
				parent.nodes = append(parent.nodes, el)
			}
		case xml.CharData:
			text := NewText(string(t))
			if len(stack) == 0 {
				frag.insertChildren(frag, frag.ChildCount(), text)
			} else {
				parent := stack[len(stack)-1]
				parent.nodes = append(parent.nodes, text)
			}
		}
	}
	return frag, nil
}
