package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// JSONNode is the serialized form of a document node.
type JSONNode struct {
	Type    string               `json:"type"`
	Name    string               `json:"name,omitempty"`
	Text    string               `json:"text,omitempty"`
	Attrs   map[string]any       `json:"attrs,omitempty"`
	Content []JSONNode           `json:"content,omitempty"`
	Markers map[string]JSONRange `json:"markers,omitempty"`
}

// JSONRange stores a marker range as paths relative to the serialized
// container.
type JSONRange struct {
	Start []int `json:"start"`
	End   []int `json:"end"`
}

const (
	jsonTypeFragment = "fragment"
	jsonTypeElement  = "element"
	jsonTypeText     = "text"
)

// Marshal serializes a container. Fragment markers are included; for
// elements the markers are not part of the tree and are left out.
func Marshal(c Container) ([]byte, error) {
	node := JSONNode{Type: jsonTypeFragment, Content: toJSONChildren(c)}
	switch typed := c.(type) {
	case *Element:
		node.Type = jsonTypeElement
		node.Name = typed.name
		node.Attrs = typed.Attributes()
	case *DocumentFragment:
		for name, rng := range typed.Markers {
			if node.Markers == nil {
				node.Markers = map[string]JSONRange{}
			}
			node.Markers[name] = JSONRange{Start: rng.Start.Path(), End: rng.End.Path()}
		}
	}
	return json.Marshal(node)
}

// MarshalRoot serializes the content of a document root as a fragment
// holding the document markers placed in that root.
func MarshalRoot(root *Element) ([]byte, error) {
	node := JSONNode{Type: jsonTypeFragment, Content: toJSONChildren(root)}
	if doc := root.Document(); doc != nil {
		for _, m := range doc.Markers().All() {
			if m.Range.Root() != Container(root) {
				continue
			}
			if node.Markers == nil {
				node.Markers = map[string]JSONRange{}
			}
			node.Markers[m.Name] = JSONRange{Start: m.Range.Start.Path(), End: m.Range.End.Path()}
		}
	}
	return json.Marshal(node)
}

func toJSONChildren(c Container) []JSONNode {
	var out []JSONNode
	for _, child := range c.Children() {
		switch typed := child.(type) {
		case *Text:
			out = append(out, JSONNode{Type: jsonTypeText, Text: typed.data, Attrs: nonEmpty(typed.Attributes())})
		case *Element:
			out = append(out, JSONNode{
				Type:    jsonTypeElement,
				Name:    typed.name,
				Attrs:   nonEmpty(typed.Attributes()),
				Content: toJSONChildren(typed),
			})
		}
	}
	return out
}

func nonEmpty(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// Unmarshal parses serialized content into a fragment. A serialized element
// contributes its children, so the fragment mirrors the element content.
func Unmarshal(data []byte) (*DocumentFragment, error) {
	var node JSONNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse document JSON: %w", err)
	}
	frag := NewDocumentFragment()
	w := NewWriter()
	if err := fromJSONChildren(w, node.Content, frag); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(node.Markers))
	for name := range node.Markers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		jr := node.Markers[name]
		start, err := PositionFromPath(frag, jr.Start)
		if err != nil {
			return nil, fmt.Errorf("marker %q start: %w", name, err)
		}
		end, err := PositionFromPath(frag, jr.End)
		if err != nil {
			return nil, fmt.Errorf("marker %q end: %w", name, err)
		}
		frag.Markers[name] = Range{Start: start, End: end}
	}
	return frag, nil
}

func fromJSONChildren(w *Writer, nodes []JSONNode, parent Container) error {
	for _, jn := range nodes {
		switch jn.Type {
		case jsonTypeText:
			if _, err := w.Append(w.CreateText(jn.Text, jn.Attrs), parent); err != nil {
				return err
			}
		case jsonTypeElement:
			if jn.Name == "" {
				return fmt.Errorf("element node without a name")
			}
			el := w.CreateElement(jn.Name, jn.Attrs)
			if err := fromJSONChildren(w, jn.Content, el); err != nil {
				return err
			}
			if _, err := w.Append(el, parent); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown node type: %s", jn.Type)
		}
	}
	return nil
}
