package model

import (
	"fmt"
	"slices"
)

// Schema answers whether a child or an attribute is allowed in a context.
// A context lists element names from the outermost ancestor down to the
// direct parent (or, for attributes, the item itself).
type Schema interface {
	CheckChild(context []string, name string) bool
	CheckAttribute(context []string, key string) bool
}

// Generic names usable in ItemDefinition.AllowIn.
const (
	BlockGroup  = "$block"
	InlineGroup = "$inline"
	// MarkerName is the temporary element marking marker boundaries in
	// upcast fragments. It is allowed everywhere.
	MarkerName = "$marker"
)

// ItemDefinition describes where an item may appear and what it may carry.
type ItemDefinition struct {
	// AllowIn lists parent names or the groups $block / $inline.
	AllowIn         []string
	AllowAttributes []string
	IsBlock         bool
	IsInline        bool
	IsObject        bool
}

// SimpleSchema is a name based Schema implementation.
type SimpleSchema struct {
	defs map[string]*ItemDefinition
}

// NewSchema returns a schema with $root and $text registered. Text is
// allowed in every block.
func NewSchema() *SimpleSchema {
	s := &SimpleSchema{defs: map[string]*ItemDefinition{}}
	s.defs[RootElementName] = &ItemDefinition{}
	s.defs[TextName] = &ItemDefinition{AllowIn: []string{BlockGroup}, IsInline: true}
	return s
}

// Register adds a new item definition.
func (s *SimpleSchema) Register(name string, def ItemDefinition) error {
	if _, ok := s.defs[name]; ok {
		return fmt.Errorf("schema item %q is already registered", name)
	}
	s.defs[name] = &def
	return nil
}

// Extend adds allowed parents and attributes to a registered item.
func (s *SimpleSchema) Extend(name string, def ItemDefinition) error {
	existing, ok := s.defs[name]
	if !ok {
		return fmt.Errorf("schema item %q is not registered", name)
	}
	existing.AllowIn = append(existing.AllowIn, def.AllowIn...)
	existing.AllowAttributes = append(existing.AllowAttributes, def.AllowAttributes...)
	existing.IsBlock = existing.IsBlock || def.IsBlock
	existing.IsInline = existing.IsInline || def.IsInline
	existing.IsObject = existing.IsObject || def.IsObject
	return nil
}

func (s *SimpleSchema) IsRegistered(name string) bool {
	_, ok := s.defs[name]
	return ok
}

func (s *SimpleSchema) IsBlock(name string) bool {
	def, ok := s.defs[name]
	return ok && def.IsBlock
}

func (s *SimpleSchema) IsObject(name string) bool {
	def, ok := s.defs[name]
	return ok && def.IsObject
}

func (s *SimpleSchema) CheckChild(context []string, name string) bool {
	if name == MarkerName {
		return true
	}
	def, ok := s.defs[name]
	if !ok || len(context) == 0 {
		return false
	}
	parentName := context[len(context)-1]
	parent := s.defs[parentName]
	for _, allowed := range def.AllowIn {
		switch {
		case allowed == parentName:
			return true
		case allowed == BlockGroup && parent != nil && parent.IsBlock:
			return true
		case allowed == InlineGroup && parent != nil && parent.IsInline:
			return true
		}
	}
	return false
}

func (s *SimpleSchema) CheckAttribute(context []string, key string) bool {
	if len(context) == 0 {
		return false
	}
	def, ok := s.defs[context[len(context)-1]]
	return ok && slices.Contains(def.AllowAttributes, key)
}
