package markdown

import (
	"fmt"
	"maps"
	"strings"
)

// HardBreakStyle controls how <br> elements are rendered.
type HardBreakStyle string

const (
	HardBreakBackslash HardBreakStyle = "backslash"
	HardBreakHTML      HardBreakStyle = "html"
)

// AlignmentStyle controls how text-align styles on blocks are rendered.
type AlignmentStyle string

const (
	AlignIgnore AlignmentStyle = "ignore"
	AlignHTML   AlignmentStyle = "html"
)

// OrderedListStyle controls ordered list numbering.
type OrderedListStyle string

const (
	OrderedIncremental OrderedListStyle = "incremental"
	OrderedLazy        OrderedListStyle = "lazy"
)

// UnknownPolicy controls handling of elements markdown has no syntax for.
type UnknownPolicy string

const (
	UnknownError UnknownPolicy = "error"
	UnknownSkip  UnknownPolicy = "skip"
	// UnknownHTML passes the element through as raw HTML. Only valid for
	// nodes.
	UnknownHTML UnknownPolicy = "html"
)

// Config holds markdown rendering and parsing options.
type Config struct {
	HeadingOffset    int               `json:"headingOffset,omitempty"`
	HardBreakStyle   HardBreakStyle    `json:"hardBreakStyle,omitempty"`
	AlignmentStyle   AlignmentStyle    `json:"alignmentStyle,omitempty"`
	BulletMarker     rune              `json:"bulletMarker,omitempty"`
	OrderedListStyle OrderedListStyle  `json:"orderedListStyle,omitempty"`
	LanguageMap      map[string]string `json:"languageMap,omitempty"`
	UnknownNodes     UnknownPolicy     `json:"unknownNodes,omitempty"`
	UnknownMarks     UnknownPolicy     `json:"unknownMarks,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.HardBreakStyle == "" {
		c.HardBreakStyle = HardBreakBackslash
	}
	if c.AlignmentStyle == "" {
		c.AlignmentStyle = AlignIgnore
	}
	if c.BulletMarker == 0 {
		c.BulletMarker = '-'
	}
	if c.OrderedListStyle == "" {
		c.OrderedListStyle = OrderedIncremental
	}
	if c.UnknownNodes == "" {
		c.UnknownNodes = UnknownHTML
	}
	if c.UnknownMarks == "" {
		c.UnknownMarks = UnknownSkip
	}
	return c
}

// clone returns a deep copy of Config for map-backed fields.
func (c Config) clone() Config {
	cloned := c
	cloned.LanguageMap = maps.Clone(c.LanguageMap)
	return cloned
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	if c.HeadingOffset < 0 || c.HeadingOffset > 5 {
		return fmt.Errorf("headingOffset must be between 0 and 5, got %d", c.HeadingOffset)
	}
	if c.HardBreakStyle != HardBreakBackslash && c.HardBreakStyle != HardBreakHTML {
		return fmt.Errorf("invalid hardBreakStyle %q", c.HardBreakStyle)
	}
	if c.AlignmentStyle != AlignIgnore && c.AlignmentStyle != AlignHTML {
		return fmt.Errorf("invalid alignmentStyle %q", c.AlignmentStyle)
	}
	if c.BulletMarker != '-' && c.BulletMarker != '*' && c.BulletMarker != '+' {
		return fmt.Errorf("invalid bulletMarker %q: must be one of -, *, +", c.BulletMarker)
	}
	if c.OrderedListStyle != OrderedIncremental && c.OrderedListStyle != OrderedLazy {
		return fmt.Errorf("invalid orderedListStyle %q", c.OrderedListStyle)
	}
	for from, to := range c.LanguageMap {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return fmt.Errorf("languageMap keys and values must be non-empty")
		}
	}
	if c.UnknownNodes != UnknownError && c.UnknownNodes != UnknownSkip && c.UnknownNodes != UnknownHTML {
		return fmt.Errorf("invalid unknownNodes policy %q", c.UnknownNodes)
	}
	if c.UnknownMarks != UnknownError && c.UnknownMarks != UnknownSkip {
		return fmt.Errorf("invalid unknownMarks policy %q", c.UnknownMarks)
	}
	return nil
}
