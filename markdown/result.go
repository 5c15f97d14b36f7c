package markdown

import "github.com/rgonek/docconv/view"

// Result holds the output of rendering a presentation tree.
type Result struct {
	Markdown string    `json:"markdown"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// ParseResult holds the presentation tree parsed from markdown.
type ParseResult struct {
	Fragment *view.DocumentFragment `json:"-"`
	Warnings []Warning              `json:"warnings,omitempty"`
}

// WarningType categorizes conversion warnings.
type WarningType string

const (
	WarningUnknownNode    WarningType = "unknown_node"
	WarningUnknownMark    WarningType = "unknown_mark"
	WarningDroppedFeature WarningType = "dropped_feature"
)

// Warning represents a non-fatal issue encountered during conversion.
type Warning struct {
	Type     WarningType `json:"type"`
	NodeType string      `json:"nodeType,omitempty"`
	Message  string      `json:"message"`
}
