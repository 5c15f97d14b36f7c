package controller

// Result holds the serialized data of a root.
type Result struct {
	Data     string    `json:"data"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// WarningType categorizes controller warnings.
type WarningType string

const (
	WarningDetachedRoot    WarningType = "detached_root"
	WarningEmptyRoot       WarningType = "empty_root"
	WarningUnconvertedNode WarningType = "unconverted_node"
)

// Warning represents a non-fatal issue encountered while getting or
// parsing data. Processor warnings keep the type their processor reported.
type Warning struct {
	Type     WarningType `json:"type"`
	NodeType string      `json:"nodeType,omitempty"`
	Message  string      `json:"message"`
}
