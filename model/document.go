package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrRootExists is returned when creating a root under a taken name.
	ErrRootExists = errors.New("root already exists")
	// ErrNoDocument is returned by writer operations that need a document.
	ErrNoDocument = errors.New("writer is not bound to a document")
)

// RootElementName is the element name given to roots by default.
const RootElementName = "$root"

// Document holds named roots and the live marker collection.
type Document struct {
	roots     map[string]*Element
	rootOrder []string
	markers   *MarkerCollection
	version   int
	batches   []*Batch
}

// Batch groups the changes applied by a single Change call.
type Batch struct {
	Version    int
	Operations int
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		roots:   map[string]*Element{},
		markers: newMarkerCollection(),
	}
}

// CreateRoot adds a new attached root. elementName defaults to "$root".
func (d *Document) CreateRoot(rootName string, elementName ...string) (*Element, error) {
	if _, ok := d.roots[rootName]; ok {
		return nil, fmt.Errorf("create root %q: %w", rootName, ErrRootExists)
	}
	name := RootElementName
	if len(elementName) > 0 && elementName[0] != "" {
		name = elementName[0]
	}
	root := NewElement(name, nil)
	root.rootName = rootName
	root.document = d
	d.roots[rootName] = root
	d.rootOrder = append(d.rootOrder, rootName)
	return root, nil
}

// Root returns the root registered under name, attached or not.
func (d *Document) Root(name string) (*Element, bool) {
	root, ok := d.roots[name]
	return root, ok
}

// DetachRoot keeps the root known to the document but removes it from the
// live tree. Its elements stop reporting an owning document.
func (d *Document) DetachRoot(name string) bool {
	root, ok := d.roots[name]
	if !ok {
		return false
	}
	root.detached = true
	return true
}

// RootNames lists the attached roots in creation order.
func (d *Document) RootNames() []string {
	var names []string
	for _, name := range d.rootOrder {
		if !d.roots[name].detached {
			names = append(names, name)
		}
	}
	return names
}

func (d *Document) Markers() *MarkerCollection { return d.markers }
func (d *Document) Version() int                { return d.version }

// Batches returns the batches applied so far, oldest first.
func (d *Document) Batches() []*Batch { return slices.Clone(d.batches) }

// Change runs fn with a writer bound to the document and records the batch.
// Changes already applied are kept when fn fails.
func (d *Document) Change(fn func(w *Writer) error) (*Batch, error) {
	d.version++
	batch := &Batch{Version: d.version}
	d.batches = append(d.batches, batch)
	if err := fn(&Writer{doc: d, batch: batch}); err != nil {
		return batch, err
	}
	return batch, nil
}

// Marker is a named range over the document.
type Marker struct {
	Name  string
	Range Range
}

// Group returns the part of the marker name before the first colon.
func (m *Marker) Group() string {
	group, _, _ := strings.Cut(m.Name, ":")
	return group
}

// MarkerCollection keeps markers in insertion order.
type MarkerCollection struct {
	byName map[string]*Marker
	order  []string
}

func newMarkerCollection() *MarkerCollection {
	return &MarkerCollection{byName: map[string]*Marker{}}
}

// Set adds a marker or moves an existing one to a new range.
func (c *MarkerCollection) Set(name string, rng Range) *Marker {
	if m, ok := c.byName[name]; ok {
		m.Range = rng
		return m
	}
	m := &Marker{Name: name, Range: rng}
	c.byName[name] = m
	c.order = append(c.order, name)
	return m
}

func (c *MarkerCollection) Get(name string) (*Marker, bool) {
	m, ok := c.byName[name]
	return m, ok
}

func (c *MarkerCollection) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *MarkerCollection) Len() int { return len(c.order) }

func (c *MarkerCollection) Remove(name string) bool {
	if _, ok := c.byName[name]; !ok {
		return false
	}
	delete(c.byName, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	return true
}

// All returns the markers in insertion order.
func (c *MarkerCollection) All() []*Marker {
	out := make([]*Marker, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Group returns the markers whose name starts with prefix + ":".
func (c *MarkerCollection) Group(prefix string) []*Marker {
	var out []*Marker
	for _, m := range c.All() {
		if strings.HasPrefix(m.Name, prefix+":") {
			out = append(out, m)
		}
	}
	return out
}
