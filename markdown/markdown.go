// Package markdown converts presentation trees to GFM markdown and parses
// markdown back into presentation trees.
package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/rgonek/docconv/view"
)

// Converter renders and parses markdown.
type Converter struct {
	config Config
	parser goldmark.Markdown
}

type state struct {
	config   Config
	source   []byte
	writer   *view.Writer
	warnings []Warning
}

// New creates a Converter with the given config.
func New(config Config) (*Converter, error) {
	cfg := config.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Converter{
		config: cfg,
		parser: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}, nil
}

// Parse converts a markdown document into a presentation fragment.
func (c *Converter) Parse(markdown string) (ParseResult, error) {
	s := &state{
		config: c.config,
		source: []byte(markdown),
		writer: view.NewWriter(),
	}

	root := c.parser.Parser().Parse(text.NewReader(s.source))
	frag := view.NewDocumentFragment()
	if err := s.convertBlockChildren(root, frag); err != nil {
		return ParseResult{}, err
	}

	return ParseResult{
		Fragment: frag,
		Warnings: s.warnings,
	}, nil
}

func (s *state) addWarning(warnType WarningType, nodeType, message string) {
	s.warnings = append(s.warnings, Warning{
		Type:     warnType,
		NodeType: nodeType,
		Message:  message,
	})
}
