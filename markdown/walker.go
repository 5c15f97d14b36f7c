package markdown

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/rgonek/docconv/view"
)

func (s *state) convertBlockChildren(parent ast.Node, target view.Container) error {
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		nodes, err := s.convertBlockNode(child)
		if err != nil {
			return err
		}
		if err := s.appendTo(target, nodes); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) appendTo(target view.Container, nodes []view.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	_, err := s.writer.Insert(view.PositionAt(target, target.ChildCount()), nodes...)
	return err
}

// container creates a container element holding the converted block
// children of node.
func (s *state) container(name string, attrs map[string]string, node ast.Node) ([]view.Node, error) {
	el := s.writer.CreateContainerElement(name, attrs)
	if err := s.convertBlockChildren(node, el); err != nil {
		return nil, err
	}
	return []view.Node{el}, nil
}

// inlineElement creates an element holding the converted inline children
// of node.
func (s *state) inlineElement(el *view.Element, node ast.Node) ([]view.Node, error) {
	children, err := s.convertInlineChildren(node)
	if err != nil {
		return nil, err
	}
	if err := s.appendTo(el, children); err != nil {
		return nil, err
	}
	return []view.Node{el}, nil
}

func (s *state) convertBlockNode(node ast.Node) ([]view.Node, error) {
	switch typed := node.(type) {
	case *ast.Paragraph:
		return s.inlineElement(s.writer.CreateContainerElement("p", nil), typed)
	case *ast.TextBlock:
		return s.convertInlineChildren(typed)
	case *ast.Heading:
		level := min(max(typed.Level, 1), 6)
		return s.inlineElement(s.writer.CreateContainerElement("h"+strconv.Itoa(level), nil), typed)
	case *ast.Blockquote:
		return s.container("blockquote", nil, typed)
	case *ast.ThematicBreak:
		return []view.Node{s.writer.CreateEmptyElement("hr", nil)}, nil
	case *ast.FencedCodeBlock:
		var attrs map[string]string
		if language := strings.TrimSpace(string(typed.Language(s.source))); language != "" {
			attrs = map[string]string{"class": "language-" + language}
		}
		return s.codeBlock(attrs, s.segments(typed.Lines())), nil
	case *ast.CodeBlock:
		return s.codeBlock(nil, s.segments(typed.Lines())), nil
	case *ast.List:
		return s.convertListNode(typed)
	case *ast.ListItem:
		return s.container("li", nil, typed)
	case *ast.HTMLBlock:
		raw := s.segments(typed.Lines())
		if typed.HasClosure() {
			raw += string(typed.ClosureLine.Value(s.source))
		}
		return s.parseHTML(raw)
	case *extast.Table:
		return s.convertTableNode(typed)
	default:
		nodeKind := typed.Kind().String()
		textValue := strings.TrimSpace(s.segments(typed.Lines()))
		if textValue == "" {
			return nil, nil
		}
		s.addWarning(
			WarningUnknownNode,
			nodeKind,
			fmt.Sprintf("unsupported markdown block node: %s", nodeKind),
		)
		p := s.writer.CreateContainerElement("p", nil, s.writer.CreateText(textValue))
		return []view.Node{p}, nil
	}
}

func (s *state) codeBlock(attrs map[string]string, content string) []view.Node {
	code := s.writer.CreateContainerElement("code", attrs)
	if content != "" {
		code = s.writer.CreateContainerElement("code", attrs, s.writer.CreateText(content))
	}
	return []view.Node{s.writer.CreateContainerElement("pre", nil, code)}
}

func (s *state) convertListNode(list *ast.List) ([]view.Node, error) {
	name := "ul"
	var attrs map[string]string
	if list.IsOrdered() {
		name = "ol"
		if list.Start != 1 {
			attrs = map[string]string{"start": strconv.Itoa(list.Start)}
		}
	}
	return s.container(name, attrs, list)
}

func (s *state) convertTableNode(table *extast.Table) ([]view.Node, error) {
	tableEl := s.writer.CreateContainerElement("table", nil)
	body := s.writer.CreateContainerElement("tbody", nil)

	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		cellName, target := "td", body
		if _, ok := row.(*extast.TableHeader); ok {
			cellName = "th"
			target = s.writer.CreateContainerElement("thead", nil)
			if err := s.appendTo(tableEl, []view.Node{target}); err != nil {
				return nil, err
			}
		}

		tr := s.writer.CreateContainerElement("tr", nil)
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			var attrs map[string]string
			if tc, ok := cell.(*extast.TableCell); ok && tc.Alignment != extast.AlignNone {
				attrs = map[string]string{"style": "text-align:" + tc.Alignment.String()}
			}
			cells, err := s.inlineElement(s.writer.CreateContainerElement(cellName, attrs), cell)
			if err != nil {
				return nil, err
			}
			if err := s.appendTo(tr, cells); err != nil {
				return nil, err
			}
		}
		if err := s.appendTo(target, []view.Node{tr}); err != nil {
			return nil, err
		}
	}

	if body.ChildCount() > 0 {
		if err := s.appendTo(tableEl, []view.Node{body}); err != nil {
			return nil, err
		}
	}
	return []view.Node{tableEl}, nil
}

func (s *state) convertInlineChildren(parent ast.Node) ([]view.Node, error) {
	var content []view.Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		converted, err := s.convertInlineNode(child)
		if err != nil {
			return nil, err
		}
		content = append(content, converted...)
	}
	return content, nil
}

func (s *state) convertInlineNode(node ast.Node) ([]view.Node, error) {
	switch typed := node.(type) {
	case *ast.Text:
		var content []view.Node
		if value := unescape(typed.Segment.Value(s.source)); value != "" {
			content = append(content, s.writer.CreateText(value))
		}
		if typed.HardLineBreak() {
			content = append(content, s.writer.CreateEmptyElement("br", nil))
		} else if typed.SoftLineBreak() {
			content = append(content, s.writer.CreateText(" "))
		}
		return content, nil

	case *ast.String:
		return []view.Node{s.writer.CreateText(unescape(typed.Value))}, nil

	case *ast.Emphasis:
		name := "em"
		if typed.Level >= 2 {
			name = "strong"
		}
		return s.inlineElement(s.writer.CreateAttributeElement(name, nil), typed)

	case *extast.Strikethrough:
		return s.inlineElement(s.writer.CreateAttributeElement("s", nil), typed)

	case *ast.CodeSpan:
		var sb strings.Builder
		for child := typed.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				sb.Write(t.Segment.Value(s.source))
			}
		}
		code := s.writer.CreateAttributeElement("code", nil)
		if err := s.appendTo(code, []view.Node{s.writer.CreateText(sb.String())}); err != nil {
			return nil, err
		}
		return []view.Node{code}, nil

	case *ast.Link:
		href := strings.TrimSpace(string(typed.Destination))
		if href == "" {
			return s.convertInlineChildren(typed)
		}
		attrs := map[string]string{"href": href}
		if title := strings.TrimSpace(string(typed.Title)); title != "" {
			attrs["title"] = title
		}
		return s.inlineElement(s.writer.CreateAttributeElement("a", attrs), typed)

	case *ast.AutoLink:
		href := string(typed.URL(s.source))
		a := s.writer.CreateAttributeElement("a", map[string]string{"href": href})
		if err := s.appendTo(a, []view.Node{s.writer.CreateText(string(typed.Label(s.source)))}); err != nil {
			return nil, err
		}
		return []view.Node{a}, nil

	case *ast.Image:
		attrs := map[string]string{"src": string(typed.Destination)}
		if alt := strings.TrimSpace(plainText(typed, s.source)); alt != "" {
			attrs["alt"] = alt
		}
		return []view.Node{s.writer.CreateEmptyElement("img", attrs)}, nil

	case *ast.RawHTML:
		raw := s.segments(typed.Segments)
		if strings.HasPrefix(raw, "</") {
			return nil, nil
		}
		return s.parseHTML(raw)

	case *extast.TaskCheckBox:
		attrs := map[string]string{"type": "checkbox"}
		if typed.IsChecked {
			attrs["checked"] = ""
		}
		return []view.Node{s.writer.CreateEmptyElement("input", attrs)}, nil

	default:
		if node.HasChildren() {
			return s.convertInlineChildren(node)
		}
		nodeKind := node.Kind().String()
		s.addWarning(WarningUnknownNode, nodeKind, fmt.Sprintf("unsupported markdown inline node: %s", nodeKind))
		return nil, nil
	}
}

// parseHTML converts a raw HTML snippet and detaches the resulting nodes.
func (s *state) parseHTML(raw string) ([]view.Node, error) {
	frag, err := view.ParseHTML(raw)
	if err != nil {
		return nil, err
	}
	nodes := slices.Clone(frag.Children())
	for _, node := range nodes {
		s.writer.Remove(node)
	}
	return nodes, nil
}

func (s *state) segments(segments *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < segments.Len(); i++ {
		segment := segments.At(i)
		sb.Write(segment.Value(s.source))
	}
	return sb.String()
}

func unescape(value []byte) string {
	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	return string(util.ResolveEntityNames(value))
}

func plainText(node ast.Node, source []byte) string {
	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			continue
		}
		sb.WriteString(plainText(child, source))
	}
	return sb.String()
}
