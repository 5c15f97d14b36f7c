package controller

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rgonek/docconv/markdown"
	"github.com/rgonek/docconv/view"
)

// Processor converts between serialized data and presentation trees.
type Processor interface {
	ToView(data string) (*view.DocumentFragment, []Warning, error)
	ToData(node view.Holder) (string, []Warning, error)
}

// HTMLProcessor reads and writes HTML.
type HTMLProcessor struct {
	policy *bluemonday.Policy
}

// NewHTMLProcessor returns a processor that trusts its input.
func NewHTMLProcessor() *HTMLProcessor {
	return &HTMLProcessor{}
}

var languageClass = regexp.MustCompile(`^language-[\w#+.-]+$`)

// NewSanitizingHTMLProcessor returns a processor that runs input through a
// user generated content policy before parsing. Boundary elements of the
// given marker groups survive sanitizing.
func NewSanitizingHTMLProcessor(markerGroups ...string) *HTMLProcessor {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(languageClass).OnElements("code")
	policy.AllowStyles("text-align").Matching(bluemonday.CellAlign).OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6")
	for _, group := range markerGroups {
		policy.AllowElements(group+"-start", group+"-end")
		policy.AllowAttrs("name").OnElements(group+"-start", group+"-end")
	}
	return &HTMLProcessor{policy: policy}
}

func (p *HTMLProcessor) ToView(data string) (*view.DocumentFragment, []Warning, error) {
	if p.policy != nil {
		data = p.policy.Sanitize(data)
	}
	frag, err := view.ParseHTML(data)
	return frag, nil, err
}

func (p *HTMLProcessor) ToData(node view.Holder) (string, []Warning, error) {
	out, err := view.RenderHTML(node)
	return out, nil, err
}

// XMLProcessor reads and writes the debug XML dialect of view.Stringify.
type XMLProcessor struct{}

func (XMLProcessor) ToView(data string) (*view.DocumentFragment, []Warning, error) {
	frag, err := view.ParseXML(data)
	return frag, nil, err
}

func (XMLProcessor) ToData(node view.Holder) (string, []Warning, error) {
	return view.Stringify(node), nil, nil
}

// MarkdownProcessor reads and writes GFM markdown.
type MarkdownProcessor struct {
	converter *markdown.Converter
}

// NewMarkdownProcessor creates a markdown processor with the given config.
func NewMarkdownProcessor(config markdown.Config) (*MarkdownProcessor, error) {
	conv, err := markdown.New(config)
	if err != nil {
		return nil, err
	}
	return &MarkdownProcessor{converter: conv}, nil
}

func (p *MarkdownProcessor) ToView(data string) (*view.DocumentFragment, []Warning, error) {
	result, err := p.converter.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return result.Fragment, fromMarkdownWarnings(result.Warnings), nil
}

func (p *MarkdownProcessor) ToData(node view.Holder) (string, []Warning, error) {
	result, err := p.converter.Render(node)
	if err != nil {
		return "", nil, err
	}
	return result.Markdown, fromMarkdownWarnings(result.Warnings), nil
}

func fromMarkdownWarnings(warnings []markdown.Warning) []Warning {
	var out []Warning
	for _, w := range warnings {
		out = append(out, Warning{
			Type:     WarningType(w.Type),
			NodeType: w.NodeType,
			Message:  w.Message,
		})
	}
	return out
}
