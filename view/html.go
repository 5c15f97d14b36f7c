package view

import (
	"bytes"
	"fmt"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML parses an HTML fragment as body content. Comments and
// doctype nodes are dropped.
func ParseHTML(data string) (*DocumentFragment, error) {
	context := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(data), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	frag := NewDocumentFragment()
	for _, n := range nodes {
		if converted := fromHTMLNode(n); converted != nil {
			frag.insertChildren(frag, frag.ChildCount(), converted)
		}
	}
	return frag, nil
}

func fromHTMLNode(n *xhtml.Node) Node {
	switch n.Type {
	case xhtml.TextNode:
		return NewText(n.Data)
	case xhtml.ElementNode:
		var children []Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if converted := fromHTMLNode(c); converted != nil {
				children = append(children, converted)
			}
		}
		attrs := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			attrs[a.Key] = a.Val
		}
		el := newElement(KindFor(n.Data, len(children) > 0), n.Data, attrs)
		if len(children) > 0 && !el.CanHaveChildren() {
			el.kind = KindContainer
		}
		el.insertChildren(el, 0, children...)
		return el
	default:
		return nil
	}
}

// RenderHTML serializes a node with the x/net/html renderer.
func RenderHTML(node Holder) (string, error) {
	var buf bytes.Buffer
	var roots []*xhtml.Node
	if frag, ok := node.(*DocumentFragment); ok {
		for _, child := range frag.nodes {
			roots = append(roots, toHTMLNode(child))
		}
	} else {
		roots = append(roots, toHTMLNode(node))
	}
	for _, n := range roots {
		if err := xhtml.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render HTML: %w", err)
		}
	}
	return buf.String(), nil
}

func toHTMLNode(node Holder) *xhtml.Node {
	switch typed := node.(type) {
	case *Text:
		return &xhtml.Node{Type: xhtml.TextNode, Data: typed.data}
	case *Element:
		n := &xhtml.Node{
			Type:     xhtml.ElementNode,
			Data:     typed.name,
			DataAtom: atom.Lookup([]byte(typed.name)),
		}
		for _, key := range typed.attrKeys {
			n.Attr = append(n.Attr, xhtml.Attribute{Key: key, Val: typed.attrs[key]})
		}
		for _, child := range typed.nodes {
			n.AppendChild(toHTMLNode(child))
		}
		return n
	default:
		return &xhtml.Node{Type: xhtml.DocumentNode}
	}
}
