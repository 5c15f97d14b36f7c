package controller

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/rgonek/docconv/basic"
	"github.com/rgonek/docconv/conversion"
	"github.com/rgonek/docconv/model"
)

// DefaultRootName is the root Get and Set work on when none is given.
const DefaultRootName = "main"

// TrimMode controls what Get returns for roots without content.
type TrimMode string

const (
	TrimNone  TrimMode = "none"
	TrimEmpty TrimMode = "empty"
)

// Registrar adds converters to a pair of dispatchers.
type Registrar func(down *conversion.DowncastDispatcher, up *conversion.UpcastDispatcher)

// BasicConverters returns a Registrar for the basic document kind.
func BasicConverters(opts basic.Options) Registrar {
	return func(down *conversion.DowncastDispatcher, up *conversion.UpcastDispatcher) {
		basic.Register(down, up, opts)
	}
}

// Config holds controller configuration.
type Config struct {
	RootName  string
	Trim      TrimMode
	Processor Processor
	Schema    model.Schema
	// Converters default to the basic document kind with MarkerGroups as
	// data marker groups.
	Converters   []Registrar
	MarkerGroups []string
	Logger       *zap.Logger
	// Options seeds the options map every converter sees. Each conversion
	// pass gets its own copy.
	Options map[string]any
}

func (c Config) applyDefaults() Config {
	if c.RootName == "" {
		c.RootName = DefaultRootName
	}
	if c.Trim == "" {
		c.Trim = TrimNone
	}
	if c.Processor == nil {
		c.Processor = NewHTMLProcessor()
	}
	if c.Schema == nil {
		c.Schema = basic.NewSchema()
	}
	if len(c.Converters) == 0 {
		c.Converters = []Registrar{BasicConverters(basic.Options{DataMarkerGroups: c.MarkerGroups})}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// clone returns a copy of Config with its own slices and maps.
func (c Config) clone() Config {
	cloned := c
	cloned.Converters = slices.Clone(c.Converters)
	cloned.MarkerGroups = slices.Clone(c.MarkerGroups)
	cloned.Options = maps.Clone(c.Options)
	return cloned
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RootName) == "" {
		return fmt.Errorf("rootName must not be empty")
	}
	if c.Trim != TrimNone && c.Trim != TrimEmpty {
		return fmt.Errorf("invalid trim mode %q", c.Trim)
	}
	for _, group := range c.MarkerGroups {
		if group == "" || strings.Contains(group, ":") {
			return fmt.Errorf("invalid marker group %q", group)
		}
	}
	for i, r := range c.Converters {
		if r == nil {
			return fmt.Errorf("converter %d is nil", i)
		}
	}
	return nil
}
