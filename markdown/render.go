package markdown

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rgonek/docconv/view"
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"~", `\~`,
)

// inline is one piece of paragraph content: a text run with its marks, or
// output that is written verbatim.
type inline struct {
	text  string
	marks []mark
	raw   string
	isRaw bool
}

// part is a rendered block, or a run of inline content found between blocks.
type part struct {
	text     string
	isInline bool
}

// Render converts a presentation tree into GFM markdown.
func (c *Converter) Render(node view.Holder) (Result, error) {
	s := &state{config: c.config}

	var out string
	var err error
	switch typed := node.(type) {
	case view.Container:
		out, err = s.renderChildren(typed, false)
	case *view.Text:
		out = textEscaper.Replace(typed.Data())
	}
	if err != nil {
		return Result{}, err
	}
	if out != "" {
		out += "\n"
	}
	return Result{Markdown: out, Warnings: s.warnings}, nil
}

func isBlockElement(node view.Node) bool {
	el, ok := node.(*view.Element)
	if !ok {
		return false
	}
	return el.Kind() == view.KindContainer || el.Name() == "hr"
}

// renderChildren renders the children of c. Inline content between blocks
// forms an implicit paragraph. In tight mode an implicit paragraph is
// followed by a single newline instead of a blank line.
func (s *state) renderChildren(c view.Container, tight bool) (string, error) {
	var parts []part
	var pending []view.Node

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		text, err := s.renderInline(pending)
		pending = nil
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, part{text: text, isInline: true})
		}
		return nil
	}

	for _, child := range c.Children() {
		if !isBlockElement(child) {
			pending = append(pending, child)
			continue
		}
		if err := flush(); err != nil {
			return "", err
		}
		text, err := s.renderBlock(child.(*view.Element))
		if err != nil {
			return "", err
		}
		if text = strings.TrimRight(text, "\n"); text != "" {
			parts = append(parts, part{text: text})
		}
	}
	if err := flush(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			if tight && parts[i-1].isInline {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(p.text)
	}
	return sb.String(), nil
}

func (s *state) renderBlock(el *view.Element) (string, error) {
	switch name := el.Name(); name {
	case "p":
		return s.renderParagraph(el)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(name[1:])
		return s.renderHeading(el, level)
	case "blockquote":
		content, err := s.renderChildren(el, false)
		if err != nil {
			return "", err
		}
		return blockquoteContent(content), nil
	case "ul", "ol":
		return s.renderList(el)
	case "pre":
		return s.renderCodeBlock(el), nil
	case "hr":
		return "---", nil
	default:
		return s.renderUnknown(el)
	}
}

func (s *state) renderUnknown(el *view.Element) (string, error) {
	switch s.config.UnknownNodes {
	case UnknownError:
		return "", fmt.Errorf("unknown element: %s", el.Name())
	case UnknownSkip:
		s.addWarning(WarningUnknownNode, el.Name(), fmt.Sprintf("element %s has no markdown form and was dropped", el.Name()))
		return "", nil
	default:
		s.addWarning(WarningUnknownNode, el.Name(), fmt.Sprintf("element %s was written as raw HTML", el.Name()))
		return view.RenderHTML(el)
	}
}

// alignmentOf returns the text-align declaration of an element style.
func alignmentOf(el *view.Element) string {
	style, ok := el.Attribute("style")
	if !ok {
		return ""
	}
	for decl := range strings.SplitSeq(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(prop) == "text-align" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// alignedHTML renders an aligned block as raw HTML when configured to. It
// reports false when the block should be rendered as markdown.
func (s *state) alignedHTML(el *view.Element) (string, bool, error) {
	if alignmentOf(el) == "" {
		return "", false, nil
	}
	if s.config.AlignmentStyle == AlignHTML {
		out, err := view.RenderHTML(el)
		return out, true, err
	}
	s.addWarning(WarningDroppedFeature, el.Name(), "text alignment is not representable in markdown")
	return "", false, nil
}

func (s *state) renderParagraph(el *view.Element) (string, error) {
	if out, ok, err := s.alignedHTML(el); ok || err != nil {
		return out, err
	}
	return s.renderInline(el.Children())
}

func (s *state) renderHeading(el *view.Element, level int) (string, error) {
	if out, ok, err := s.alignedHTML(el); ok || err != nil {
		return out, err
	}
	level = min(level+s.config.HeadingOffset, 6)

	content, err := s.renderInline(el.Children())
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", nil
	}
	// Headings cannot end with a hard break.
	content = strings.TrimSuffix(content, "\\\n")
	content = strings.ReplaceAll(content, "\n", " ")
	return strings.Repeat("#", level) + " " + content, nil
}

// blockquoteContent prefixes every line with "> ".
func blockquoteContent(content string) string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	quotedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case line == "":
			quotedLines = append(quotedLines, ">")
		case strings.HasPrefix(line, ">"):
			quotedLines = append(quotedLines, ">"+line)
		default:
			quotedLines = append(quotedLines, "> "+line)
		}
	}
	return strings.Join(quotedLines, "\n")
}

func (s *state) renderList(el *view.Element) (string, error) {
	ordered := el.Name() == "ol"
	number := 1
	if start, ok := el.Attribute("start"); ok {
		if n, err := strconv.Atoi(start); err == nil {
			number = n
		}
	}

	loose := false
	for _, child := range el.Children() {
		if item, ok := child.(*view.Element); ok && slices.ContainsFunc(item.Children(), isParagraph) {
			loose = true
		}
	}

	var items []string
	for _, child := range el.Children() {
		item, ok := child.(*view.Element)
		if !ok || item.Name() != "li" {
			if text, isText := child.(*view.Text); isText && strings.TrimSpace(text.Data()) == "" {
				continue
			}
			s.addWarning(WarningDroppedFeature, el.Name(), "list content outside of a list item was dropped")
			continue
		}

		content, err := s.renderChildren(item, true)
		if err != nil {
			return "", err
		}
		marker := string(s.config.BulletMarker) + " "
		if ordered {
			marker = strconv.Itoa(number) + ". "
			if s.config.OrderedListStyle == OrderedIncremental {
				number++
			}
		}
		if content == "" {
			items = append(items, strings.TrimRight(marker, " "))
			continue
		}
		items = append(items, indent(content, marker))
	}

	separator := "\n"
	if loose {
		separator = "\n\n"
	}
	return strings.Join(items, separator), nil
}

func isParagraph(node view.Node) bool {
	el, ok := node.(*view.Element)
	return ok && el.Name() == "p"
}

// indent prefixes the first line with marker and the following lines with
// spaces of the marker width.
func indent(content, marker string) string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	indentStr := strings.Repeat(" ", len(marker))
	for i, line := range lines {
		switch {
		case i == 0:
			lines[i] = marker + line
		case line != "":
			lines[i] = indentStr + line
		}
	}
	return strings.Join(lines, "\n")
}

func (s *state) renderCodeBlock(el *view.Element) string {
	source := view.Container(el)
	language := ""
	if el.ChildCount() == 1 {
		if code, ok := el.Child(0).(*view.Element); ok && code.Name() == "code" {
			source = code
			for _, class := range code.Classes() {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					language = lang
				}
			}
		}
	}
	if mapped, ok := s.config.LanguageMap[language]; ok {
		language = mapped
	}

	content := strings.TrimRight(textContent(source), "\n")
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}

	var result strings.Builder
	result.WriteString(fence)
	result.WriteString(language)
	result.WriteString("\n")
	if content != "" {
		result.WriteString(content)
		result.WriteString("\n")
	}
	result.WriteString(fence)
	return result.String()
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

// renderInline renders paragraph content keeping marks open across
// adjacent runs that share them.
func (s *state) renderInline(nodes []view.Node) (string, error) {
	var runs []inline
	for _, node := range nodes {
		if err := s.collectInline(node, nil, &runs); err != nil {
			return "", err
		}
	}

	useUnderscoreForEm := false
	for _, run := range runs {
		if hasMark(run.marks, "strong") && hasMark(run.marks, "em") {
			useUnderscoreForEm = true
			break
		}
	}

	var sb strings.Builder
	var activeMarks []mark
	closeMarks := func(marks []mark) {
		for i := len(marks) - 1; i >= 0; i-- {
			_, closing := delimiters(marks[i], useUnderscoreForEm)
			sb.WriteString(closing)
		}
	}

	for _, run := range runs {
		if run.isRaw {
			closeMarks(activeMarks)
			activeMarks = nil
			sb.WriteString(run.raw)
			continue
		}

		closeMarks(marksToClose(activeMarks, run.marks))
		for _, m := range marksToOpen(activeMarks, run.marks) {
			opening, _ := delimiters(m, useUnderscoreForEm)
			sb.WriteString(opening)
		}
		if hasMark(run.marks, "code") {
			sb.WriteString(run.text)
		} else {
			sb.WriteString(textEscaper.Replace(run.text))
		}
		activeMarks = run.marks
	}
	closeMarks(activeMarks)

	return sb.String(), nil
}

func (s *state) collectInline(node view.Node, marks []mark, out *[]inline) error {
	switch typed := node.(type) {
	case *view.Text:
		*out = append(*out, inline{text: typed.Data(), marks: marks})
		return nil
	case *view.Element:
		if typed.Name() == "br" {
			raw := "\\\n"
			if s.config.HardBreakStyle == HardBreakHTML {
				raw = "<br>"
			}
			*out = append(*out, inline{raw: raw, isRaw: true})
			return nil
		}
		if !typed.CanHaveChildren() {
			raw, err := view.RenderHTML(typed)
			if err != nil {
				return err
			}
			*out = append(*out, inline{raw: raw, isRaw: true})
			return nil
		}

		inner := marks
		if m, ok := markFor(typed); ok {
			inner = append(slices.Clone(marks), m)
		} else {
			if s.config.UnknownMarks == UnknownError {
				return fmt.Errorf("unknown inline element: %s", typed.Name())
			}
			s.addWarning(WarningUnknownMark, typed.Name(), fmt.Sprintf("inline element %s has no markdown form, kept its text", typed.Name()))
		}
		for _, child := range typed.Children() {
			if err := s.collectInline(child, inner, out); err != nil {
				return err
			}
		}
	}
	return nil
}
